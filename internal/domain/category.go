package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups products into a tree through an optional parent reference
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        Slug       `json:"slug"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CategoryDraft holds the fields a caller may set on a category
type CategoryDraft struct {
	Name        string
	Slug        string
	Description string
	ParentID    *uuid.UUID
}

// NewCategory validates a draft into a new category. Parent existence is
// checked by the caller, only self-reference is rejected here.
func NewCategory(d CategoryDraft, now time.Time) (*Category, error) {
	c := &Category{ID: uuid.New(), CreatedAt: now.UTC()}
	if err := c.Apply(d, now); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply replaces the category's mutable fields with a validated draft
func (c *Category) Apply(d CategoryDraft, now time.Time) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return NewValidationError("name", "must not be empty", nil)
	}
	if len(name) > maxNameLength {
		return NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength), len(name))
	}
	var slug Slug
	var err error
	if strings.TrimSpace(d.Slug) == "" {
		slug, err = slugFromName(name)
	} else {
		slug, err = ParseSlug(d.Slug)
	}
	if err != nil {
		return err
	}
	if d.ParentID != nil && *d.ParentID == c.ID {
		return NewValidationError("parent_id", "category cannot be its own parent", d.ParentID.String())
	}
	c.Name = name
	c.Slug = slug
	c.Description = strings.TrimSpace(d.Description)
	c.ParentID = cloneID(d.ParentID)
	c.UpdatedAt = now.UTC()
	return nil
}

func (c *Category) IsRoot() bool { return c.ParentID == nil }

// CategoryNode is a category together with its children, used for tree views
type CategoryNode struct {
	Category *Category      `json:"category"`
	Children []CategoryNode `json:"children"`
}

// BuildCategoryTree arranges categories by parent. Categories whose parent is
// not in the list are treated as roots. Siblings are ordered by name.
func BuildCategoryTree(categories []*Category) []CategoryNode {
	byID := make(map[uuid.UUID]bool, len(categories))
	for _, c := range categories {
		byID[c.ID] = true
	}
	children := make(map[uuid.UUID][]*Category)
	var roots []*Category
	for _, c := range categories {
		if c.ParentID == nil || !byID[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(list []*Category, seen map[uuid.UUID]bool) []CategoryNode
	build = func(list []*Category, seen map[uuid.UUID]bool) []CategoryNode {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		nodes := make([]CategoryNode, 0, len(list))
		for _, c := range list {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			nodes = append(nodes, CategoryNode{Category: c, Children: build(children[c.ID], seen)})
		}
		return nodes
	}
	return build(roots, make(map[uuid.UUID]bool, len(categories)))
}

// Descendants returns the ids of every category below root, breadth first
func Descendants(categories []*Category, root uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{root: true}
	queue := []uuid.UUID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}
