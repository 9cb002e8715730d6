package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
)

var (
	ErrPersonNotFound = errors.New("person not found")
	ErrPhotoNotFound  = errors.New("group photo not found")
)

// Store provides read access to a loaded PeopleData document.
type Store struct {
	mu     sync.RWMutex
	data   PeopleData
	people map[string]int
	photos map[string]int
}

// Load reads and decodes the people document at path.
func Load(fs afero.Fs, path string) (*Store, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("error: cannot read people data: %w", err)
	}
	var data PeopleData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("error: cannot parse people data %s: %w", path, err)
	}
	return NewStore(data), nil
}

// NewStore indexes data. Later duplicates of an id shadow earlier ones in
// lookups; Validate reports them.
func NewStore(data PeopleData) *Store {
	s := &Store{}
	s.replace(data)
	return s
}

func (s *Store) replace(data PeopleData) {
	people := make(map[string]int, len(data.People))
	for i, p := range data.People {
		people[p.ID] = i
	}
	photos := make(map[string]int, len(data.GroupPhotos))
	for i, ph := range data.GroupPhotos {
		photos[ph.ID] = i
	}
	s.mu.Lock()
	s.data = data
	s.people = people
	s.photos = photos
	s.mu.Unlock()
}

// Data returns a copy of the whole document.
func (s *Store) Data() PeopleData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PeopleData{
		People:      append([]Person(nil), s.data.People...),
		GroupPhotos: append([]GroupPhoto(nil), s.data.GroupPhotos...),
	}
}

// PersonByID looks a person up by id.
func (s *Store) PersonByID(id string) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.people[id]
	if !ok {
		return Person{}, ErrPersonNotFound
	}
	return s.data.People[i], nil
}

// PhotoByID looks a group photo up by id.
func (s *Store) PhotoByID(id string) (GroupPhoto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.photos[id]
	if !ok {
		return GroupPhoto{}, ErrPhotoNotFound
	}
	return s.data.GroupPhotos[i], nil
}

// People returns the visible people, optionally limited to one category.
// An empty category selects all of them.
func (s *Store) People(category Category) []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Person, 0, len(s.data.People))
	for _, p := range s.data.People {
		if p.Hidden {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// GroupPhotos returns the group photos, optionally limited to one category.
func (s *Store) GroupPhotos(category Category) []GroupPhoto {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]GroupPhoto, 0, len(s.data.GroupPhotos))
	for _, ph := range s.data.GroupPhotos {
		if category != "" && ph.Category != category {
			continue
		}
		out = append(out, ph)
	}
	return out
}

// PeopleInPhoto returns the visible people tagged in the given photo.
func (s *Store) PeopleInPhoto(photoID string) []Person {
	return PeopleInPhoto(s.People(""), photoID)
}

// PeopleInPhoto filters people down to those tagged in photoID.
func PeopleInPhoto(people []Person, photoID string) []Person {
	var out []Person
	for _, p := range people {
		if _, ok := p.LocationIn(photoID); ok {
			out = append(out, p)
		}
	}
	return out
}
