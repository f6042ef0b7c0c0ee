package domain

// Country is a reference country keyed by its ISO alpha-2 code.
type Country struct {
	Code2 string `json:"code2"`
	Code3 string `json:"code3"`
	Name  string `json:"name"`
}

// City belongs to a country and optionally a region.
type City struct {
	ID          int64   `json:"id"`
	CountryCode string  `json:"country_code"`
	Name        string  `json:"name"`
	Region      *string `json:"region,omitempty"`
}

// DisplayName renders "<name>, <region>" when a region is known.
func (c City) DisplayName() string {
	if c.Region != nil && *c.Region != "" {
		return c.Name + ", " + *c.Region
	}
	return c.Name
}
