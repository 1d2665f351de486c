// Package db embeds the database schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the checkout core tables (cart, cart_items,
// promocode, user_promocode, orders, order_items) plus the catalog read slice.
//
//go:embed migrations/001_schema.sql
var Schema string
