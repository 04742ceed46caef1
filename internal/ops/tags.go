package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

// TagUsage counts journal entries per source tag.
type TagUsage struct {
	Tag     string `json:"tag"`
	Entries int    `json:"entries"`
}

// TagsOutput contains the result of the Tags operation.
type TagsOutput struct {
	Table []sourcetag.Entry `json:"table"`
	Usage []TagUsage        `json:"usage"`
}

// Tags returns the effective process → label table and, when database is
// non-nil, how often each label appears in the journal.
func Tags(ctx context.Context, database *sql.DB, table *sourcetag.Table) (*TagsOutput, error) {
	out := &TagsOutput{
		Table: table.Entries(),
		Usage: []TagUsage{},
	}

	if database == nil {
		return out, nil
	}
	counts, err := db.CountSourceTags(ctx, database)
	if err != nil {
		return nil, err
	}
	for _, c := range counts {
		out.Usage = append(out.Usage, TagUsage{Tag: c.Tag, Entries: c.Count})
	}
	return out, nil
}
