package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tombaby2015-max/family-photo-album-google/database"
	"github.com/tombaby2015-max/family-photo-album-google/models"
	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

const DefaultSectionTitle = "New section"

// SectionService manages the per-folder section lists. Sync never touches them.
type SectionService struct {
	sections repository.SectionRepositoryInterface
	folders  repository.FolderRepositoryInterface
	index    *IndexService
}

func NewSectionService(sections repository.SectionRepositoryInterface, folders repository.FolderRepositoryInterface, index *IndexService) *SectionService {
	return &SectionService{sections: sections, folders: folders, index: index}
}

func findSection(sections []models.Section, sectionID string) int {
	for i := range sections {
		if sections[i].ID == sectionID {
			return i
		}
	}
	return -1
}

func (s *SectionService) load(ctx context.Context, folderID string) ([]models.Section, error) {
	sections, err := s.sections.List(ctx, folderID)
	if err != nil {
		return nil, storeErr("load sections", err)
	}
	return sections, nil
}

func (s *SectionService) save(ctx context.Context, folderID string, sections []models.Section) error {
	if err := s.sections.Save(ctx, folderID, sections); err != nil {
		return storeErr("save sections", err)
	}
	return nil
}

// List returns the folder's sections by ascending order.
func (s *SectionService) List(ctx context.Context, folderID string) ([]models.Section, error) {
	sections, err := s.load(ctx, folderID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Order < sections[j].Order })
	return sections, nil
}

// Create appends a section after the current last one.
func (s *SectionService) Create(ctx context.Context, folderID, title string) (models.Section, error) {
	sections, err := s.load(ctx, folderID)
	if err != nil {
		return models.Section{}, err
	}

	order := 1
	for i, sec := range sections {
		if i == 0 || sec.Order+1 > order {
			order = sec.Order + 1
		}
	}
	if title = strings.TrimSpace(title); title == "" {
		title = DefaultSectionTitle
	}

	section := models.Section{ID: uuid.NewString(), Title: title, Order: order}
	sections = append(sections, section)
	if err := s.save(ctx, folderID, sections); err != nil {
		return models.Section{}, err
	}
	return section, nil
}

func (s *SectionService) Rename(ctx context.Context, folderID, sectionID, title string) error {
	sections, err := s.load(ctx, folderID)
	if err != nil {
		return err
	}
	i := findSection(sections, sectionID)
	if i < 0 {
		return notFound("section", sectionID)
	}
	sections[i].Title = title
	return s.save(ctx, folderID, sections)
}

// Delete removes a section and unassigns the photos that referenced it. The
// photos themselves are kept.
func (s *SectionService) Delete(ctx context.Context, folderID, sectionID string) error {
	sections, err := s.load(ctx, folderID)
	if err != nil {
		return err
	}
	if i := findSection(sections, sectionID); i >= 0 {
		sections = append(sections[:i], sections[i+1:]...)
		if err := s.save(ctx, folderID, sections); err != nil {
			return err
		}
	}

	folder, err := s.folders.Get(ctx, folderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr("load folder "+folderID, err)
	}
	changed := false
	for i := range folder.Photos {
		if p := &folder.Photos[i]; p.SectionID != nil && *p.SectionID == sectionID {
			p.SectionID = nil
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.folders.Put(ctx, folderID, folder); err != nil {
		return storeErr("save folder "+folderID, err)
	}
	return s.index.PatchOne(ctx, folderID, folder)
}

// Reorder sets the order of the listed sections; unknown IDs are ignored.
func (s *SectionService) Reorder(ctx context.Context, folderID string, orders []OrderItem) error {
	sections, err := s.load(ctx, folderID)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		return nil
	}
	for _, o := range orders {
		if i := findSection(sections, o.ID); i >= 0 {
			sections[i].Order = o.Order
		}
	}
	return s.save(ctx, folderID, sections)
}
