package bmad

import (
	"context"
	"errors"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/vectorstore"
)

const defaultSearchLimit = 10

// NewDocumentTool builds the document master tool. Metadata rows live
// in the local store; content lives in the vector store under the same
// ID, and reads join the two.
func NewDocumentTool(opts Options) (*registry.MasterTool, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := documentHandlers{
		store:  opts.Store,
		vector: opts.Vector,
		logger: logger.Named("document"),
	}
	tool := opts.masterTool("document", "1.2.0",
		"Documents with vector-store content: create, fetch, delete, and search.",
		domain.GroupDocuments, documentToolPriority)

	return registerAll(tool, []boundOperation{
		{
			op: domain.Operation{
				Name:        "create_document",
				Kind:        domain.OperationCreate,
				Description: "Store a document's metadata and index its content.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"title", "content"}, map[string]*jsonschema.Schema{
					"title":   stringProp("Document title."),
					"content": stringProp("Full document text."),
					"tags":    stringListProp("Labels for the document."),
				}),
			},
			handler: h.create,
		},
		{
			op: domain.Operation{
				Name:        "get_document",
				Kind:        domain.OperationRead,
				Description: "Fetch one document's metadata and content by ID.",
				Timeout:     opTimeout,
				CacheTTL:    60 * time.Second,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id": stringProp("Document ID."),
				}),
			},
			handler: h.get,
		},
		{
			op: domain.Operation{
				Name:        "delete_document",
				Kind:        domain.OperationDelete,
				Description: "Delete a document; the local row wins if the index is unreachable.",
				Timeout:     opTimeout,
				InputSchema: objectSchema([]string{"id"}, map[string]*jsonschema.Schema{
					"id": stringProp("Document ID."),
				}),
			},
			handler: h.delete,
		},
		{
			op: domain.Operation{
				Name:        "search_documents",
				Kind:        domain.OperationSearch,
				Description: "Search document content semantically.",
				Timeout:     opTimeout,
				CacheTTL:    20 * time.Second,
				InputSchema: objectSchema([]string{"query"}, map[string]*jsonschema.Schema{
					"query": stringProp("Search query."),
					"limit": intProp("Maximum number of matches to return."),
				}),
			},
			handler: h.search,
		},
	})
}

type documentHandlers struct {
	store  *Store
	vector *vectorstore.Client
	logger *zap.Logger
}

func (h documentHandlers) create(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.create_document"

	title, err := requiredString(errOp, args, "title")
	if err != nil {
		return nil, err
	}
	content, err := requiredString(errOp, args, "content")
	if err != nil {
		return nil, err
	}
	tags, _, err := stringSlice(errOp, args, "tags")
	if err != nil {
		return nil, err
	}

	doc, err := h.store.CreateDocument(ctx, CreateDocumentParams{Title: title, Tags: tags})
	if err != nil {
		return nil, err
	}

	err = h.vector.AddDocument(ctx, vectorstore.Document{
		ID:      doc.ID,
		Content: content,
		Metadata: map[string]any{
			"title": title,
			"tags":  tags,
		},
	})
	if err != nil {
		// Roll the metadata row back so a failed index never leaves a
		// document that reads as present but has no content.
		if delErr := h.store.DeleteDocument(ctx, doc.ID); delErr != nil {
			h.logger.Warn("orphaned document row after index failure",
				zap.String("document_id", doc.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	return documentPayload(doc, content, 0, false), nil
}

func (h documentHandlers) get(ctx context.Context, args map[string]any) (any, error) {
	id, err := requiredString("bmad.get_document", args, "id")
	if err != nil {
		return nil, err
	}

	doc, err := h.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	indexed, err := h.vector.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return documentPayload(doc, indexed.Content, 0, false), nil
}

func (h documentHandlers) delete(ctx context.Context, args map[string]any) (any, error) {
	id, err := requiredString("bmad.delete_document", args, "id")
	if err != nil {
		return nil, err
	}

	if err := h.store.DeleteDocument(ctx, id); err != nil {
		return nil, err
	}
	if err := h.vector.DeleteDocument(ctx, id); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		// The row is gone, which is what callers observe; the stale
		// index entry is filtered out of search joins.
		h.logger.Warn("vector store delete failed",
			zap.String("document_id", id),
			zap.Error(err),
		)
	}
	return map[string]any{"id": id, "deleted": true}, nil
}

func (h documentHandlers) search(ctx context.Context, args map[string]any) (any, error) {
	const errOp = "bmad.search_documents"

	query, err := requiredString(errOp, args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := limitArg(errOp, args)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = defaultSearchLimit
	}

	matches, err := h.vector.SearchDocuments(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	documents := make([]map[string]any, 0, len(matches))
	for _, match := range matches {
		doc, err := h.store.GetDocument(ctx, match.Document.ID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			// Deleted locally; the index entry just has not caught up.
			continue
		}
		if err != nil {
			return nil, err
		}
		documents = append(documents, documentPayload(doc, match.Document.Content, match.Score, true))
	}
	return map[string]any{"query": query, "documents": documents, "count": len(documents)}, nil
}

func documentPayload(doc *Document, content string, score float64, scored bool) map[string]any {
	payload := map[string]any{
		"id":         doc.ID,
		"title":      doc.Title,
		"tags":       doc.Tags,
		"content":    content,
		"created_at": doc.CreatedAt,
		"updated_at": doc.UpdatedAt,
	}
	if scored {
		payload["score"] = score
	}
	return payload
}
