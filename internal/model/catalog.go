package model

// Region names a subset of the catalog
type Region string

const (
	RegionWorld    Region = "world"
	RegionEurope   Region = "europe"
	RegionAsia     Region = "asia"
	RegionAmericas Region = "americas"
	RegionAfrica   Region = "africa"
	RegionOceania  Region = "oceania"
)

// Entity is something players guess. The engine forwards it to clients as-is.
type Entity struct {
	Name    string   `json:"name"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Aliases []string `json:"aliases,omitempty"`
}

// RegionInfo describes a selectable region
type RegionInfo struct {
	Name Region `json:"name"`
	Size int    `json:"size"`
}
