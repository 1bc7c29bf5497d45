// Package projection serves filtered, paginated read views over governed
// entities. It is read-only and never touches the executor's write path.
package projection

import (
	"context"

	apperrors "github.com/sellerdesk/approvals/internal/errors"
	"github.com/sellerdesk/approvals/internal/storage"
	"github.com/sellerdesk/approvals/internal/workflow/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filters narrows a listing. Empty fields match everything.
type Filters struct {
	Status   domain.Status
	Category string
	Search   string
}

// Page is one page of entities plus paging metadata.
type Page struct {
	Items []domain.Entity
	// Page is the 1-based page number actually served.
	Page int
	// Pages is the page count for the filtered set at this page size.
	Pages int
	// Total is the unpaged match count.
	Total int64
}

// Projection answers entity listing queries.
type Projection struct {
	entities storage.EntityStore
}

// New builds a projection over the given entity store.
func New(entities storage.EntityStore) *Projection {
	return &Projection{entities: entities}
}

// Query returns one page of entities matching the filters.
//
// Page numbers are 1-based: a non-positive page serves page 1, and a page
// past the end returns an empty page at the requested number. The page size
// clamps to [1, 100].
func (p *Projection) Query(ctx context.Context, entityType domain.EntityType, filters Filters, page, pageSize int) (Page, error) {
	if _, ok := domain.ParseEntityType(string(entityType)); !ok {
		return Page{}, apperrors.WithMetadata(apperrors.CodeBadRequest, "unknown entity type",
			map[string]string{"EntityType": string(entityType)})
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * pageSize
	items, total, err := p.entities.QueryEntities(ctx, entityType, storage.QueryFilters{
		Status:   filters.Status,
		Category: filters.Category,
		Search:   filters.Search,
	}, offset, pageSize)
	if err != nil {
		return Page{}, apperrors.Wrap(apperrors.CodeUnknown, "query entities", err)
	}

	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages == 0 {
		pages = 1
	}
	return Page{Items: items, Page: page, Pages: pages, Total: total}, nil
}
