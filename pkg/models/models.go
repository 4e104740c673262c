package models

import "github.com/uptrace/bun"

// RegisterModels registers the join tables bun needs to resolve m2m
// relations. Call once per DB handle before running queries.
func RegisterModels(db *bun.DB) {
	db.RegisterModel((*BookAuthor)(nil))
}
