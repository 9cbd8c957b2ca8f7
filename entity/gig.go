package entity

type Gig struct {
	ID                 string `json:"id" db:"gig_id"`
	BandName           string `json:"bandName" db:"band_name"`
	City               string `json:"city" db:"city"`
	Year               string `json:"year" db:"year"`
	Date               string `json:"date" db:"date"`
	Venue              string `json:"venue" db:"venue"`
	CollectionPointMap string `json:"collectionPointMap" db:"collection_point_map"`
	CollectionPoint    string `json:"collectionPoint" db:"collection_point"`
	CollectionTime     string `json:"collectionTime" db:"collection_time"`
	OriginalDate       string `json:"originalDate" db:"original_date"`
	Capacity           int    `json:"capacity" db:"capacity"`
	Description        string `json:"description" db:"description"`
	Image              string `json:"image" db:"image"`
	Price              string `json:"price" db:"price"`
}
