package pipeline

import (
	"math/rand/v2"

	"github.com/lysyi3m/newsroom/app/database"
)

// AuthorPicker chooses the byline for a new article. It returns nil for an empty pool.
type AuthorPicker func(pool []database.Author) *database.Author

// PickAuthor chooses uniformly at random.
func PickAuthor(pool []database.Author) *database.Author {
	if len(pool) == 0 {
		return nil
	}
	return &pool[rand.IntN(len(pool))]
}
