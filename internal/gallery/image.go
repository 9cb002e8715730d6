package gallery

import (
	"strconv"
	"unicode/utf8"
)

// ImageKind says how a person's picture is produced.
type ImageKind string

const (
	ImageIndividual   ImageKind = "individual"
	ImageCroppedGroup ImageKind = "cropped-group"
	ImagePlaceholder  ImageKind = "placeholder"
)

// ImageInfo describes how to render a person's picture. For cropped group
// photos, BackgroundSize and BackgroundPosition are CSS values that zoom
// the group photo onto the person's box.
type ImageInfo struct {
	Kind               ImageKind `json:"type"`
	Src                string    `json:"src,omitempty"`
	BackgroundSize     string    `json:"backgroundSize,omitempty"`
	BackgroundPosition string    `json:"backgroundPosition,omitempty"`
	Placeholder        string    `json:"placeholder,omitempty"`
}

// PersonImage picks a person's display image: their individual photo, the
// crop from their preferred group photo, the crop from their first tagged
// group photo, or a placeholder with the first letter of their name.
func PersonImage(p Person, photos []GroupPhoto) ImageInfo {
	if p.IndividualPhoto != nil && *p.IndividualPhoto != "" {
		return ImageInfo{Kind: ImageIndividual, Src: *p.IndividualPhoto}
	}
	if len(p.PhotoLocations) == 0 {
		return placeholder(p)
	}

	loc, ok := PhotoLocation{}, false
	if p.PreferredPhotoID != "" {
		loc, ok = p.LocationIn(p.PreferredPhotoID)
	}
	if !ok {
		loc = p.PhotoLocations[0]
	}

	var photo *GroupPhoto
	for i := range photos {
		if photos[i].ID == loc.PhotoID {
			photo = &photos[i]
			break
		}
	}
	if photo == nil {
		return placeholder(p)
	}

	size, pos := Crop(loc)
	return ImageInfo{
		Kind:               ImageCroppedGroup,
		Src:                photo.ImagePath,
		BackgroundSize:     size,
		BackgroundPosition: pos,
	}
}

// Crop converts a box into CSS background-size and background-position
// values. A position of P% aligns the point P% across the image with the
// point P% across the container, so the box's top-left corner lands on the
// container's top-left when P = x / (100 - width) * 100.
func Crop(loc PhotoLocation) (size, position string) {
	size = pct(10000/loc.Width) + " " + pct(10000/loc.Height)

	var x, y float64
	if loc.Width < 100 {
		x = loc.X / (100 - loc.Width) * 100
	}
	if loc.Height < 100 {
		y = loc.Y / (100 - loc.Height) * 100
	}
	return size, pct(x) + " " + pct(y)
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

func placeholder(p Person) ImageInfo {
	r, _ := utf8.DecodeRuneInString(p.Name)
	initial := ""
	if r != utf8.RuneError {
		initial = string(r)
	}
	return ImageInfo{Kind: ImagePlaceholder, Placeholder: initial}
}
