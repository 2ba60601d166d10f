package models

import (
	"encoding/base64"
	"errors"
	"strconv"
)

type PageInfo struct {
	StartCursor *string `json:"start_cursor"`
	EndCursor   *string `json:"end_cursor"`
	HasNextPage bool    `json:"has_next_page"`
}

type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   *T     `json:"node"`
}

type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"page_info"`
}

func EncodeCursor(id int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

func DecodeCursor(cursor string) (int, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errors.New("invalid cursor")
	}
	id, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, errors.New("invalid cursor")
	}
	return id, nil
}

// buildConnection assembles edges from rows fetched with limit+1.
func buildConnection[T any](rows []*T, limit int, cursorOf func(*T) string) *Connection[T] {
	hasNext := false
	if len(rows) > limit {
		hasNext = true
		rows = rows[:limit]
	}
	conn := Connection[T]{Edges: make([]Edge[T], 0, len(rows)), PageInfo: PageInfo{HasNextPage: hasNext}}
	for _, row := range rows {
		conn.Edges = append(conn.Edges, Edge[T]{Cursor: cursorOf(row), Node: row})
	}
	if len(conn.Edges) > 0 {
		start := conn.Edges[0].Cursor
		end := conn.Edges[len(conn.Edges)-1].Cursor
		conn.PageInfo.StartCursor = &start
		conn.PageInfo.EndCursor = &end
	}
	return &conn
}
