package scriptsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedent_CommonMargin(t *testing.T) {
	in := "    st.write(\"a\")\n    st.write(\"b\")\n"
	assert.Equal(t, "st.write(\"a\")\nst.write(\"b\")\n", Dedent(in))
}

func TestDedent_MixedDepths(t *testing.T) {
	in := "    if (x) {\n        st.write(\"a\")\n    }\n"
	assert.Equal(t, "if (x) {\n    st.write(\"a\")\n}\n", Dedent(in))
}

func TestDedent_FlushLeftUnchanged(t *testing.T) {
	in := "st.write(\"a\")\nst.write(\"b\")\n"
	assert.Equal(t, in, Dedent(in))
}

func TestDedent_BlankLinesIgnoredForMargin(t *testing.T) {
	in := "    st.write(\"a\")\n\n    st.write(\"b\")\n"
	assert.Equal(t, "st.write(\"a\")\n\nst.write(\"b\")\n", Dedent(in))
}

func TestDedent_WhitespaceOnlyLinesNormalized(t *testing.T) {
	in := "    st.write(\"a\")\n      \n    st.write(\"b\")\n"
	assert.Equal(t, "st.write(\"a\")\n\nst.write(\"b\")\n", Dedent(in))
}

func TestDedent_TabsNotExpanded(t *testing.T) {
	// A tab margin and a space margin share no common prefix.
	in := "\tst.write(\"a\")\n    st.write(\"b\")\n"
	assert.Equal(t, in, Dedent(in))
}

func TestDedent_Idempotent(t *testing.T) {
	in := "        st.write(\"a\")\n        st.write(\"b\")\n"
	once := Dedent(in)
	assert.Equal(t, once, Dedent(once))
}

func TestDedent_LeadingNewline(t *testing.T) {
	in := "\n        st.write(\"hello\")\n    "
	assert.Equal(t, "\nst.write(\"hello\")\n", Dedent(in))
}
