package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eidetic-labs/eideticmcp/internal/embed"
	searcherrors "github.com/eidetic-labs/eideticmcp/internal/errors"
	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// NoteStore persists session notes in the same vector-store adapter the
// indexer and searcher use, namespaced into notesCollection so it never
// collides with a per-tree code collection.
type NoteStore struct {
	store    store.Store
	embedder embed.Embedder
}

// NewNoteStore returns a NoteStore backed by s and e. ensureCollection
// must be called once (or lazily on first write) before use.
func NewNoteStore(s store.Store, e embed.Embedder) *NoteStore {
	return &NoteStore{store: s, embedder: e}
}

func (n *NoteStore) ensureCollection(ctx context.Context) error {
	if err := n.embedder.Initialize(ctx); err != nil {
		return err
	}
	if n.store.HasCollection(ctx, notesCollection) {
		return nil
	}
	if err := n.store.CreateCollection(ctx, notesCollection, n.embedder.Dimensions()); err != nil {
		return searcherrors.VectorStoreError("failed to create session notes collection", err)
	}
	return nil
}

// Add stores a new note under sessionName and returns it with an
// assigned id and timestamp.
func (n *NoteStore) Add(ctx context.Context, sessionName, title, content string) (*Note, error) {
	if err := n.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vec, err := n.embedder.Embed(ctx, content)
	if err != nil {
		return nil, searcherrors.EmbeddingError("failed to embed note", err)
	}

	note := &Note{ID: uuid.NewString(), Session: sessionName, Title: title, Content: content, CreatedAt: time.Now()}

	doc := noteToDocument(note, vec)
	if err := n.store.Insert(ctx, notesCollection, []*store.Document{doc}); err != nil {
		return nil, searcherrors.VectorStoreError("failed to insert note", err)
	}
	return note, nil
}

// Search returns notes matching query within sessionName, ranked by the
// store's dense+lexical fusion.
func (n *NoteStore) Search(ctx context.Context, sessionName, query string, limit int) ([]*Note, error) {
	if !n.store.HasCollection(ctx, notesCollection) {
		return nil, nil
	}
	if err := n.embedder.Initialize(ctx); err != nil {
		return nil, err
	}

	vec, err := n.embedder.Embed(ctx, query)
	if err != nil {
		return nil, searcherrors.EmbeddingError("failed to embed note query", err)
	}

	results, err := n.store.Search(ctx, notesCollection, store.SearchQuery{
		QueryVector: vec,
		QueryText:   query,
		Limit:       limit,
	})
	if err != nil {
		return nil, searcherrors.VectorStoreError("failed to search notes", err)
	}

	notes := make([]*Note, 0, len(results))
	for _, r := range results {
		if r.RelativePath != sessionName {
			continue
		}
		notes = append(notes, documentToNote(&r.Document))
	}
	return notes, nil
}

// Delete removes every note stored under sessionName.
func (n *NoteStore) Delete(ctx context.Context, sessionName string) error {
	if err := n.store.DeleteByPath(ctx, notesCollection, sessionName); err != nil {
		return searcherrors.VectorStoreError("failed to delete session notes", err)
	}
	return nil
}

// noteToDocument packs a Note into a Document, reusing RelativePath as the
// session-name partition key (so DeleteByPath removes every note for a
// session) and SymbolName as the note title.
func noteToDocument(note *Note, vec []float32) *store.Document {
	return &store.Document{
		ID:           note.ID,
		RelativePath: note.Session,
		Content:      note.Content,
		SymbolName:   note.Title,
		Vector:       vec,
		StartLine:    1,
		EndLine:      1,
	}
}

func documentToNote(doc *store.Document) *Note {
	return &Note{
		ID:      doc.ID,
		Session: doc.RelativePath,
		Title:   doc.SymbolName,
		Content: doc.Content,
	}
}
