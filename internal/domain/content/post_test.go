package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWordCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"!!!", 0},
		{"Hello, world!", 2},
		{"Multiple   spaces   between   words", 4},
		{"one", 1},
		{"hyphen-ated words", 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, WordCount(tc.in), "input %q", tc.in)
	}
}

func TestPublishedAt(t *testing.T) {
	p := Post{Date: "2023-06-15"}
	got, err := p.PublishedAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC), got)

	p = Post{Date: "2023-06-15T08:30:00Z"}
	got, err = p.PublishedAt()
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())

	p = Post{Date: "not-a-date"}
	_, err = p.PublishedAt()
	assert.Error(t, err)
}

func TestSectionLabel(t *testing.T) {
	assert.Equal(t, "Value-Based Care", SectionLabel(SectionVBC))
	assert.Equal(t, "All", SectionLabel(SectionAll))
	assert.Equal(t, "", SectionLabel(""))
}
