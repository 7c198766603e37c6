package database

import (
	"context"
	"fmt"
)

type AuthorStore struct {
	db *DB
}

func NewAuthorStore(db *DB) *AuthorStore {
	return &AuthorStore{db: db}
}

func (r *AuthorStore) ListAuthors(ctx context.Context) ([]Author, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, bio, role, article_count FROM authors ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var author Author
		if err := rows.Scan(&author.ID, &author.Name, &author.Bio, &author.Role, &author.ArticleCount); err != nil {
			return nil, fmt.Errorf("failed to scan author row: %w", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating author rows: %w", err)
	}

	return authors, nil
}
