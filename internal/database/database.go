// Package database connects the archive engine to a PostgreSQL server.
package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
)

// ErrClosed is returned by Exec on a closed connection.
var ErrClosed = errors.New("connection is closed")

// Params are the connection settings a restore run collects from its
// command line. Empty fields fall back to the libpq environment
// (PGHOST, PGPORT, PGUSER, PGPASSWORD, ...).
type Params struct {
	Host     string
	Port     string
	User     string
	DBName   string
	Password string
	Role     string // SET ROLE after connecting
}

// Conn is one open session.
type Conn interface {
	// Exec runs one or more SQL statements with the simple query protocol.
	Exec(ctx context.Context, sql string) error
	// Close ends the session. Closing twice is harmless.
	Close(ctx context.Context) error
}

// Connector opens sessions.
type Connector interface {
	Connect(ctx context.Context, p Params) (Conn, error)
}

// PgxConnector opens sessions with pgx.
type PgxConnector struct{}

// Connect implements Connector.
func (PgxConnector) Connect(ctx context.Context, p Params) (Conn, error) {
	cfg, err := ConnConfig(p)
	if err != nil {
		return nil, err
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := &pgxConn{conn: conn}
	if p.Role != "" {
		if err := c.Exec(ctx, SetRole(p.Role)); err != nil {
			_ = c.Close(ctx)
			return nil, fmt.Errorf("could not set role %q: %w", p.Role, err)
		}
	}
	return c, nil
}

// ConnConfig builds the pgx configuration for p on top of the defaults pgx
// derives from the environment.
func ConnConfig(p Params) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("reading connection defaults: %w", err)
	}

	if p.Host != "" {
		cfg.Host = p.Host
		cfg.Fallbacks = nil
	}
	if p.Port != "" {
		port, err := strconv.ParseUint(p.Port, 10, 16)
		if err != nil || port == 0 {
			return nil, fmt.Errorf("invalid port number %q", p.Port)
		}
		cfg.Port = uint16(port)
		cfg.Fallbacks = nil
	}
	if p.User != "" {
		cfg.User = p.User
	}
	if p.DBName != "" {
		cfg.Database = p.DBName
	}
	if p.Password != "" {
		cfg.Password = p.Password
	}
	cfg.RuntimeParams["application_name"] = "restorekit"

	return cfg, nil
}

// SetRole returns the statement that switches the session to role.
func SetRole(role string) string {
	return "SET ROLE " + pgx.Identifier{role}.Sanitize()
}

type pgxConn struct {
	mu     sync.Mutex
	conn   *pgx.Conn
	closed bool
}

func (c *pgxConn) Exec(ctx context.Context, sql string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	_, err := c.conn.Exec(ctx, sql, pgx.QueryExecModeSimpleProtocol)
	return err
}

func (c *pgxConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close(ctx)
}
