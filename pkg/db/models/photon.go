package models

import "github.com/uptrace/bun"

// Photon is one registry record: a single saved version of a named photon.
type Photon struct {
	bun.BaseModel `bun:"table:photons,alias:p"`

	ID        string `bun:",pk"`
	Seq       int64  `bun:",unique,notnull"`
	Name      string `bun:",notnull"`
	Model     string `bun:",notnull"`
	Path      string `bun:",notnull"`
	Digest    string `bun:",notnull"`
	CreatedAt int64  `bun:",notnull"`
}
