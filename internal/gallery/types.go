// Package gallery holds the people and group photographs shown by the
// recognition page, and the geometry that maps a person to their crop
// inside a group photo.
package gallery

// Category groups people and photos into page sections.
type Category string

const (
	CategoryStaff      Category = "staff"
	CategoryInterns    Category = "interns"
	CategoryGirlfriend Category = "girlfriend"
	CategoryFamily     Category = "family"
	CategorySILLab     Category = "sil-lab"
	CategoryAstronaut  Category = "astronaut"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryStaff,
	CategoryInterns,
	CategoryGirlfriend,
	CategoryFamily,
	CategorySILLab,
	CategoryAstronaut,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// PhotoLocation is a person's bounding box inside a group photo. All
// values are percentages of the photo's width or height.
type PhotoLocation struct {
	PhotoID string  `json:"photoId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// Person is someone recognized on the page.
type Person struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         Category        `json:"category"`
	IndividualPhoto  *string         `json:"individualPhoto"`
	PhotoLocations   []PhotoLocation `json:"photoLocations"`
	PreferredPhotoID string          `json:"preferredPhotoId,omitempty"`
	Hidden           bool            `json:"hidden,omitempty"`
}

// LocationIn returns the person's box in the given photo.
func (p *Person) LocationIn(photoID string) (PhotoLocation, bool) {
	for _, loc := range p.PhotoLocations {
		if loc.PhotoID == photoID {
			return loc, true
		}
	}
	return PhotoLocation{}, false
}

// GroupPhoto is a photograph several people are tagged in.
type GroupPhoto struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ImagePath string   `json:"imagePath"`
	Category  Category `json:"category"`
	Width     int      `json:"width,omitempty"`
	Height    int      `json:"height,omitempty"`
}

// PeopleData is the on-disk document describing the page.
type PeopleData struct {
	People      []Person     `json:"people"`
	GroupPhotos []GroupPhoto `json:"groupPhotos"`
}
