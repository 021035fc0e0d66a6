package migrations

import "github.com/pressly/goose/v3"

var createUsersTableUp = ddl{
	goose.DialectSQLite3: `
	CREATE TABLE users (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  name TEXT NOT NULL,
	  email TEXT NOT NULL UNIQUE,
	  created_at DATETIME NOT NULL,
	  updated_at DATETIME NOT NULL
	);
	`,
	goose.DialectPostgres: `
	CREATE TABLE users (
	  id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	  name TEXT NOT NULL,
	  email TEXT NOT NULL UNIQUE,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	`,
}

var createUsersTableDown = ddl{
	goose.DialectSQLite3:  `DROP TABLE IF EXISTS users;`,
	goose.DialectPostgres: `DROP TABLE IF EXISTS users;`,
}
