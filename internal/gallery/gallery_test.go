package gallery

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

const peopleJSON = `{
  "people": [
    {"id": "ada", "name": "Ada", "description": "Flight software", "category": "staff",
     "individualPhoto": null,
     "photoLocations": [{"photoId": "team", "x": 40, "y": 25, "width": 20, "height": 50}]},
    {"id": "bo", "name": "Bo", "description": "", "category": "interns",
     "individualPhoto": "/images/bo.jpg", "photoLocations": []},
    {"id": "cy", "name": "Cy", "description": "", "category": "staff",
     "individualPhoto": null, "photoLocations": [], "hidden": true}
  ],
  "groupPhotos": [
    {"id": "team", "name": "Team", "imagePath": "/images/team.png", "category": "staff"},
    {"id": "interns", "name": "Interns", "imagePath": "/images/missing.png", "category": "interns"}
  ]
}`

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/people.json", []byte(peopleJSON), 0644); err != nil {
		t.Fatal(err)
	}
	f, err := fs.Create("/public/images/team.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return fs
}

func TestLoadAndLookup(t *testing.T) {
	s, err := Load(newTestFs(t), "/data/people.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := s.PersonByID("ada")
	if err != nil || p.Name != "Ada" {
		t.Fatalf("expected Ada, got %+v (%v)", p, err)
	}
	if _, err := s.PersonByID("nobody"); !errors.Is(err, ErrPersonNotFound) {
		t.Fatalf("expected ErrPersonNotFound, got %v", err)
	}
	if got := len(s.People("")); got != 2 {
		t.Fatalf("expected 2 visible people, got %d", got)
	}
	if got := len(s.People(CategoryStaff)); got != 1 {
		t.Fatalf("expected 1 visible staff member, got %d", got)
	}
	if got := len(s.GroupPhotos(CategoryInterns)); got != 1 {
		t.Fatalf("expected 1 intern photo, got %d", got)
	}
	in := s.PeopleInPhoto("team")
	if len(in) != 1 || in[0].ID != "ada" {
		t.Fatalf("expected only ada in team photo, got %+v", in)
	}
}

func TestLoad_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Load(fs, "/missing.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
	_ = afero.WriteFile(fs, "/bad.json", []byte("{"), 0644)
	if _, err := Load(fs, "/bad.json"); err == nil {
		t.Fatal("expected error for malformed file")
	}
}

func TestWithDimensions(t *testing.T) {
	fs := newTestFs(t)
	s, err := Load(fs, "/data/people.json")
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu     sync.Mutex
		warned []string
	)
	err = s.WithDimensions(context.Background(), fs, "/public", func(ph GroupPhoto, _ error) {
		mu.Lock()
		warned = append(warned, ph.ID)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("WithDimensions: %v", err)
	}
	team, _ := s.PhotoByID("team")
	if team.Width != 64 || team.Height != 48 {
		t.Fatalf("expected 64x48, got %dx%d", team.Width, team.Height)
	}
	interns, _ := s.PhotoByID("interns")
	if interns.Width != DefaultPhotoWidth || interns.Height != DefaultPhotoHeight {
		t.Fatalf("expected fallback size, got %dx%d", interns.Width, interns.Height)
	}
	if len(warned) != 1 || warned[0] != "interns" {
		t.Fatalf("expected one warning for interns, got %v", warned)
	}
}

func TestPersonImage(t *testing.T) {
	photos := []GroupPhoto{
		{ID: "team", ImagePath: "/images/team.png"},
		{ID: "wide", ImagePath: "/images/wide.png"},
	}
	solo := "/images/bo.jpg"
	tests := []struct {
		name   string
		person Person
		want   ImageInfo
	}{
		{
			name:   "individual photo wins",
			person: Person{Name: "Bo", IndividualPhoto: &solo, PhotoLocations: []PhotoLocation{{PhotoID: "team", Width: 10, Height: 10}}},
			want:   ImageInfo{Kind: ImageIndividual, Src: solo},
		},
		{
			name:   "no locations",
			person: Person{Name: "Zoë"},
			want:   ImageInfo{Kind: ImagePlaceholder, Placeholder: "Z"},
		},
		{
			name:   "first location crop",
			person: Person{Name: "Ada", PhotoLocations: []PhotoLocation{{PhotoID: "team", X: 40, Y: 25, Width: 20, Height: 50}}},
			want:   ImageInfo{Kind: ImageCroppedGroup, Src: "/images/team.png", BackgroundSize: "500% 200%", BackgroundPosition: "50% 50%"},
		},
		{
			name: "preferred photo",
			person: Person{Name: "Ada", PreferredPhotoID: "wide", PhotoLocations: []PhotoLocation{
				{PhotoID: "team", X: 40, Y: 25, Width: 20, Height: 50},
				{PhotoID: "wide", X: 10, Y: 0, Width: 100, Height: 100},
			}},
			want: ImageInfo{Kind: ImageCroppedGroup, Src: "/images/wide.png", BackgroundSize: "100% 100%", BackgroundPosition: "0% 0%"},
		},
		{
			name:   "unknown photo falls back to placeholder",
			person: Person{Name: "Ada", PhotoLocations: []PhotoLocation{{PhotoID: "gone", Width: 10, Height: 10}}},
			want:   ImageInfo{Kind: ImagePlaceholder, Placeholder: "A"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PersonImage(tt.person, photos); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	s, err := Load(newTestFs(t), "/data/people.json")
	if err != nil {
		t.Fatal(err)
	}
	rep := Validate(s.Data())
	if !rep.OK() {
		t.Fatalf("expected valid document, got %v", rep.Issues)
	}
	if rep.Stats.People != 3 || rep.Stats.Hidden != 1 || rep.Stats.WithIndividual != 1 ||
		rep.Stats.InGroupPhotos != 1 || rep.Stats.NotInAnyPicture != 1 {
		t.Fatalf("unexpected stats: %+v", rep.Stats)
	}

	bad := PeopleData{
		People: []Person{
			{ID: "x", Name: "X", Category: "pilots", PhotoLocations: []PhotoLocation{{PhotoID: "nope", X: -1, Y: 101, Width: 0, Height: 150}}},
			{ID: "x", Category: CategoryStaff},
		},
		GroupPhotos: []GroupPhoto{{ID: "p"}},
	}
	rep = Validate(bad)
	// person 1: category, photoId, x, y, width, height; person 2: name, duplicate;
	// photo 1: name, imagePath, category
	if len(rep.Issues) != 11 {
		for _, is := range rep.Issues {
			t.Log(is)
		}
		t.Fatalf("expected 11 issues, got %d", len(rep.Issues))
	}
}

func TestCycleTiming(t *testing.T) {
	if EffectivePeopleCount(0) != 1 || EffectivePeopleCount(-1) != 1 {
		t.Fatal("expected minimum of 1")
	}
	if EffectivePeopleCount(5) != 5 {
		t.Fatal("expected count below max to pass through")
	}
	if EffectivePeopleCount(100) != MaxPeoplePerPhotoCycle {
		t.Fatal("expected count to be capped")
	}
	base := PhotoCycleDuration / 5
	if BaseHighlightInterval(5) != base {
		t.Fatalf("expected %s, got %s", base, BaseHighlightInterval(5))
	}
	if HighlightDuration(0, 5) != base+FirstLastHighlightPadding {
		t.Fatal("expected padding on the first person")
	}
	if HighlightDuration(4, 5) != base+FirstLastHighlightPadding {
		t.Fatal("expected padding on the last person")
	}
	if HighlightDuration(2, 5) != base {
		t.Fatal("expected no padding in the middle")
	}
	if !IsLastPersonInCycle(4, 5) || IsLastPersonInCycle(3, 5) {
		t.Fatal("unexpected last-person detection")
	}
	if BaseHighlightInterval(1) != PhotoCycleDuration {
		t.Fatal("expected whole cycle for a single person")
	}
}

func TestShuffle(t *testing.T) {
	in := []Person{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	out := Shuffle(in, rand.New(rand.NewSource(7)))
	if len(out) != len(in) {
		t.Fatalf("expected %d people, got %d", len(in), len(out))
	}
	seen := map[string]bool{}
	for _, p := range out {
		seen[p.ID] = true
	}
	if len(seen) != 4 {
		t.Fatalf("shuffle lost people: %v", out)
	}
	if in[0].ID != "a" || in[3].ID != "d" {
		t.Fatal("shuffle modified its input")
	}
}
