// Package element defines the declarative output tree produced by a script run.
//
// Every st.* call a script makes appends one Element to the tree, stamped with a
// strictly increasing sequence number from the runner's logical clock. The tree
// is the primary observable effect of a run: tests assert against it, golden
// files snapshot it, and the CLI prints it.
package element

// Kind identifies the element variant an st.* call produced.
type Kind string

const (
	// KindWrite is the generic output element (st.write).
	KindWrite Kind = "write"

	// KindMarkdown is a markdown text block (st.markdown).
	KindMarkdown Kind = "markdown"

	// KindText is a plain-text block (st.text).
	KindText Kind = "text"

	// KindImage is an image backed by a stored media record (st.image).
	KindImage Kind = "image"

	// KindAudio is an audio clip backed by a stored media record (st.audio).
	KindAudio Kind = "audio"

	// KindButton is an interactive button widget (st.button).
	KindButton Kind = "button"
)

// Element is a single declared output node.
//
// Exactly one payload group is populated per kind:
//   - text kinds (write, markdown, text, button): Text
//   - media kinds (image, audio): MediaHandle + ContentKind
//
// Seq orders elements within one pass. It restarts at 1 each pass so two runs of
// the same script produce byte-identical trees.
type Element struct {
	Kind        Kind   `json:"kind"`
	Seq         int64  `json:"seq"`
	Text        string `json:"text,omitempty"`
	MediaHandle string `json:"media_handle,omitempty"`
	ContentKind string `json:"content_kind,omitempty"`
}

// Tree is the ordered element tree assembled from one pass.
//
// Order is exactly the order the script's declarative calls occurred.
type Tree struct {
	Elements []Element `json:"elements"`
}

// Append adds an element to the end of the tree.
func (t *Tree) Append(e Element) {
	t.Elements = append(t.Elements, e)
}

// Len returns the number of elements in the tree.
func (t *Tree) Len() int {
	return len(t.Elements)
}

// OfKind returns all elements of the given kind, in tree order.
func (t *Tree) OfKind(kind Kind) []Element {
	var out []Element
	for _, e := range t.Elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first element of the given kind, or false if none exists.
func (t *Tree) First(kind Kind) (Element, bool) {
	for _, e := range t.Elements {
		if e.Kind == kind {
			return e, true
		}
	}
	return Element{}, false
}

// Texts returns the Text payload of every element of the given kind, in order.
func (t *Tree) Texts(kind Kind) []string {
	var out []string
	for _, e := range t.Elements {
		if e.Kind == kind {
			out = append(out, e.Text)
		}
	}
	return out
}

// Kinds returns the kind of every element, in tree order.
func (t *Tree) Kinds() []Kind {
	out := make([]Kind, len(t.Elements))
	for i, e := range t.Elements {
		out[i] = e.Kind
	}
	return out
}

// ToCanonicalValue converts the element to a map suitable for MarshalCanonical.
// Empty payload fields are omitted so golden bytes stay minimal and stable.
func (e Element) ToCanonicalValue() map[string]any {
	m := map[string]any{
		"kind": string(e.Kind),
		"seq":  e.Seq,
	}
	if e.Text != "" {
		m["text"] = e.Text
	}
	if e.MediaHandle != "" {
		m["media_handle"] = e.MediaHandle
	}
	if e.ContentKind != "" {
		m["content_kind"] = e.ContentKind
	}
	return m
}

// ToCanonicalValue converts the tree to a slice suitable for MarshalCanonical.
func (t *Tree) ToCanonicalValue() []any {
	out := make([]any, len(t.Elements))
	for i, e := range t.Elements {
		out[i] = e.ToCanonicalValue()
	}
	return out
}
