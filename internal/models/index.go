package models

import (
	"fmt"
	"sort"
	"strings"
)

// DocID is a stable handle to a Document inside an Index arena.
type DocID int

// Index owns every Document of a survey and exposes three views over them:
// by relative path, by citekey and by keyword. The views store handles,
// never copies.
type Index struct {
	docs       []*Document
	byFilename map[string]DocID
	byCitekey  map[string]DocID
	byKeyword  map[string][]DocID
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		byFilename: make(map[string]DocID),
		byCitekey:  make(map[string]DocID),
		byKeyword:  make(map[string][]DocID),
	}
}

// Add stores doc in the arena and registers it under its relative path.
func (x *Index) Add(doc Document) DocID {
	id := DocID(len(x.docs))
	x.docs = append(x.docs, &doc)
	x.byFilename[doc.RelPath] = id
	return id
}

// Doc returns the Document for id.
func (x *Index) Doc(id DocID) *Document {
	return x.docs[id]
}

// Len returns the number of documents.
func (x *Index) Len() int { return len(x.docs) }

// RegisterCitekey points key at id. When key already belonged to another
// document that document's handle is returned with replaced=true.
func (x *Index) RegisterCitekey(key string, id DocID) (prev DocID, replaced bool) {
	prev, replaced = x.byCitekey[key]
	x.byCitekey[key] = id
	if replaced && prev == id {
		replaced = false
	}
	return prev, replaced
}

// AddKeyword appends id to the keyword's document list.
func (x *Index) AddKeyword(keyword string, id DocID) {
	x.byKeyword[keyword] = append(x.byKeyword[keyword], id)
}

// ByFilename looks a document up by relative path.
func (x *Index) ByFilename(rel string) (*Document, bool) {
	id, ok := x.byFilename[rel]
	if !ok {
		return nil, false
	}
	return x.Doc(id), true
}

// ByCitekey looks a document up by citekey.
func (x *Index) ByCitekey(key string) (*Document, bool) {
	id, ok := x.byCitekey[key]
	if !ok {
		return nil, false
	}
	return x.Doc(id), true
}

// ByKeyword returns the documents carrying keyword, in registration order.
func (x *Index) ByKeyword(keyword string) []*Document {
	ids := x.byKeyword[keyword]
	out := make([]*Document, len(ids))
	for i, id := range ids {
		out[i] = x.Doc(id)
	}
	return out
}

// ByOutputName finds the document rendered to name.
func (x *Index) ByOutputName(name string) (*Document, bool) {
	for _, d := range x.docs {
		if d.OutputName == name {
			return d, true
		}
	}
	return nil, false
}

// Documents returns every document in survey order.
func (x *Index) Documents() []*Document {
	out := make([]*Document, len(x.docs))
	copy(out, x.docs)
	return out
}

// Citekeys returns all registered citekeys, sorted.
func (x *Index) Citekeys() []string {
	return sortedKeys(x.byCitekey)
}

// Keywords returns all registered keywords, sorted.
func (x *Index) Keywords() []string {
	return sortedKeys(x.byKeyword)
}

// KeywordCount returns how many documents carry keyword.
func (x *Index) KeywordCount(keyword string) int {
	return len(x.byKeyword[keyword])
}

// Same reports whether a and b are the same arena entry.
func (x *Index) Same(a, b *Document) bool {
	return a != nil && b != nil && a == b
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toString(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}
