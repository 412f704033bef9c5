package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mcoot/geoduel/internal/dependencies/random"
	"github.com/mcoot/geoduel/internal/model"
)

//go:embed countries.json
var defaultData []byte

// Service is an immutable mapping from region to guessable entities.
// The world region is always the union of every named region.
type Service struct {
	random  random.Random
	regions map[model.Region][]model.Entity
	order   []model.Region
}

// New creates a catalog from the embedded country dataset
func New(random random.Random) (*Service, error) {
	return Parse(defaultData, random)
}

// LoadFromFile creates a catalog from a JSON file mapping region names to entity lists
func LoadFromFile(path string, random random.Random) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, random)
}

// Parse creates a catalog from JSON-encoded region data
func Parse(data []byte, random random.Random) (*Service, error) {
	var raw map[model.Region][]model.Entity
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewFromRegions(raw, random)
}

// NewFromRegions creates a catalog from in-memory region data.
// Any "world" entry in regions is ignored and rebuilt from the others.
func NewFromRegions(regions map[model.Region][]model.Entity, random random.Random) (*Service, error) {
	s := &Service{
		random:  random,
		regions: make(map[model.Region][]model.Entity, len(regions)+1),
	}

	names := make([]model.Region, 0, len(regions))
	for name, entities := range regions {
		name = model.Region(strings.ToLower(strings.TrimSpace(string(name))))
		if name == model.RegionWorld || name == "" {
			continue
		}
		if len(entities) == 0 {
			return nil, fmt.Errorf("%w: %s", model.ErrEmptyRegion, name)
		}
		s.regions[name] = append([]model.Entity(nil), entities...)
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrEmptyRegion, model.RegionWorld)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var world []model.Entity
	for _, name := range names {
		world = append(world, s.regions[name]...)
	}
	s.regions[model.RegionWorld] = world
	s.order = append([]model.Region{model.RegionWorld}, names...)

	return s, nil
}

// Regions lists the selectable regions, world first
func (s *Service) Regions() []model.RegionInfo {
	infos := make([]model.RegionInfo, len(s.order))
	for i, name := range s.order {
		infos[i] = model.RegionInfo{Name: name, Size: len(s.regions[name])}
	}
	return infos
}

// Normalize maps a requested region onto a known one; anything unrecognised is world
func (s *Service) Normalize(requested string) model.Region {
	name := model.Region(strings.ToLower(strings.TrimSpace(requested)))
	if _, ok := s.regions[name]; ok {
		return name
	}
	return model.RegionWorld
}

// Entities returns a copy of a region's entities
func (s *Service) Entities(region model.Region) []model.Entity {
	return append([]model.Entity(nil), s.regions[s.Normalize(string(region))]...)
}

// Pick draws a random entity from region. If previous is set and the region
// has more than one member, previous is never drawn again.
func (s *Service) Pick(region model.Region, previous *model.Entity) (*model.Entity, error) {
	list := s.regions[s.Normalize(string(region))]
	if len(list) == 0 {
		return nil, model.ErrEmptyRegion
	}

	skip := -1
	if previous != nil && len(list) > 1 {
		for i := range list {
			if list[i].Name == previous.Name {
				skip = i
				break
			}
		}
	}

	var idx int
	if skip < 0 {
		idx = s.random.Intn(len(list))
	} else {
		idx = s.random.Intn(len(list) - 1)
		if idx >= skip {
			idx++
		}
	}

	picked := list[idx]
	picked.Aliases = append([]string(nil), picked.Aliases...)
	return &picked, nil
}
