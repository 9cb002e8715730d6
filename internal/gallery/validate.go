package gallery

import "fmt"

// Issue is a single validation failure.
type Issue struct {
	// Subject is "person" or "photo".
	Subject string `json:"subject"`
	// Index is the 1-based position in the document.
	Index   int    `json:"index"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %d (%s): %s", i.Subject, i.Index, i.Label, i.Message)
}

// Stats summarizes a document.
type Stats struct {
	People          int              `json:"people"`
	GroupPhotos     int              `json:"groupPhotos"`
	ByCategory      map[Category]int `json:"byCategory"`
	Hidden          int              `json:"hidden"`
	WithIndividual  int              `json:"withIndividualPhoto"`
	InGroupPhotos   int              `json:"inGroupPhotos"`
	NotInAnyPicture int              `json:"notInAnyPhoto"`
}

// Report is the result of Validate.
type Report struct {
	Issues []Issue `json:"issues"`
	Stats  Stats   `json:"stats"`
}

// OK reports whether no issues were found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Validate checks required fields, duplicate ids, categories and that
// every photo location points at a known photo with coordinates within
// 0-100.
func Validate(data PeopleData) Report {
	var rep Report
	photoIDs := make(map[string]struct{}, len(data.GroupPhotos))
	for _, ph := range data.GroupPhotos {
		photoIDs[ph.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(data.People))
	for i, p := range data.People {
		label := p.Name
		if label == "" {
			label = p.ID
		}
		add := func(format string, args ...interface{}) {
			rep.Issues = append(rep.Issues, Issue{Subject: "person", Index: i + 1, Label: label, Message: fmt.Sprintf(format, args...)})
		}
		if p.ID == "" {
			add("missing id")
		}
		if p.Name == "" {
			add("missing name")
		}
		if p.Category == "" {
			add("missing category")
		} else if !p.Category.Valid() {
			add("invalid category: %s", p.Category)
		}
		if _, dup := seen[p.ID]; dup {
			add("duplicate id: %s", p.ID)
		}
		seen[p.ID] = struct{}{}

		for j, loc := range p.PhotoLocations {
			if _, ok := photoIDs[loc.PhotoID]; !ok {
				add("invalid photoId at location %d: %s", j, loc.PhotoID)
			}
			if loc.X < 0 || loc.X > 100 {
				add("invalid x coordinate: %v (must be 0-100)", loc.X)
			}
			if loc.Y < 0 || loc.Y > 100 {
				add("invalid y coordinate: %v (must be 0-100)", loc.Y)
			}
			if loc.Width <= 0 || loc.Width > 100 {
				add("invalid width: %v (must be 0-100)", loc.Width)
			}
			if loc.Height <= 0 || loc.Height > 100 {
				add("invalid height: %v (must be 0-100)", loc.Height)
			}
		}
	}

	for i, ph := range data.GroupPhotos {
		label := ph.Name
		if label == "" {
			label = ph.ID
		}
		add := func(format string, args ...interface{}) {
			rep.Issues = append(rep.Issues, Issue{Subject: "photo", Index: i + 1, Label: label, Message: fmt.Sprintf(format, args...)})
		}
		if ph.ID == "" {
			add("missing id")
		}
		if ph.Name == "" {
			add("missing name")
		}
		if ph.ImagePath == "" {
			add("missing imagePath")
		}
		if ph.Category == "" {
			add("missing category")
		} else if !ph.Category.Valid() {
			add("invalid category: %s", ph.Category)
		}
	}

	rep.Stats = summarize(data)
	return rep
}

func summarize(data PeopleData) Stats {
	st := Stats{
		People:      len(data.People),
		GroupPhotos: len(data.GroupPhotos),
		ByCategory:  make(map[Category]int),
	}
	for _, p := range data.People {
		st.ByCategory[p.Category]++
		hasIndividual := p.IndividualPhoto != nil && *p.IndividualPhoto != ""
		if p.Hidden {
			st.Hidden++
		}
		if hasIndividual {
			st.WithIndividual++
		}
		if len(p.PhotoLocations) > 0 {
			st.InGroupPhotos++
		}
		if !hasIndividual && len(p.PhotoLocations) == 0 {
			st.NotInAnyPicture++
		}
	}
	return st
}
