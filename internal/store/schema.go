package store

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed schema/*.sql
var schemas embed.FS

// Migrate creates the tables for the given driver if they do not exist yet.
func Migrate(ctx context.Context, db sqlx.ExecerContext, driver string) error {
	file, err := schemas.Open("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	defer file.Close()
	return ExecScript(ctx, db, file)
}

// ExecScript executes the SQL statements read from r. A statement ends at the first line that
// contains a semicolon.
func ExecScript(ctx context.Context, db sqlx.ExecerContext, r io.Reader) error {
	fileScanner := bufio.NewScanner(r)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			if err := execStatement(ctx, db, builder.String()); err != nil {
				return err
			}
			builder = strings.Builder{}
		}
	}
	if err := fileScanner.Err(); err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	// a final statement may lack its semicolon
	return execStatement(ctx, db, builder.String())
}

func execStatement(ctx context.Context, db sqlx.ExecerContext, statement string) error {
	if strings.TrimSpace(statement) == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, statement); err != nil {
		return fmt.Errorf("execute %q: %w", strings.TrimSpace(statement), err)
	}
	return nil
}
