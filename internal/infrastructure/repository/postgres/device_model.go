package postgres

import "time"

type deviceTableModel struct {
	ID        string     `db:"id"`
	TeamID    int64      `db:"team_id"`
	Name      string     `db:"name"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type deviceInsertModel struct {
	ID        string    `db:"id"`
	TeamID    int64     `db:"team_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
