package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/loamcms/loam"
	"github.com/loamcms/loam/factory"
)

// runCount executes a count against a live database, exercising the
// same filter and search compilation the listing path uses.
func runCount(args []string) error {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	typePath := fs.String("type", "", "path to the content type definition JSON")
	filterPath := fs.String("filter", "", "path to the filter tree JSON (optional)")
	dialectName := fs.String("dialect", "postgres", "postgres or sqlserver")
	dsn := fs.String("dsn", "", "connection string")
	search := fs.String("search", "", "search text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *typePath == "" || *dsn == "" {
		return fmt.Errorf("-type and -dsn are required")
	}

	typeData, err := os.ReadFile(*typePath)
	if err != nil {
		return err
	}
	contentType, err := loam.ParseContentType(typeData)
	if err != nil {
		return err
	}
	registry := loam.NewContentTypeRegistry()
	if err := registry.Register(contentType); err != nil {
		return err
	}

	var filter loam.Condition
	if *filterPath != "" {
		filterData, err := os.ReadFile(*filterPath)
		if err != nil {
			return err
		}
		filter, err = loam.ParseFilterTree(filterData)
		if err != nil {
			return err
		}
	}

	dialect, err := loam.ParseDialect(*dialectName)
	if err != nil {
		return err
	}

	ctx := context.Background()
	config := loam.DefaultConfig()
	config.Database.Dialect = dialect

	var engine loam.ContentQueryEngine
	switch dialect {
	case loam.DialectPostgres:
		pool, err := pgxpool.New(ctx, *dsn)
		if err != nil {
			return fmt.Errorf("open postgres pool: %w", err)
		}
		defer pool.Close()
		engine = factory.NewPostgresQueryEngine(pool, registry, config)
	case loam.DialectSQLServer:
		db, err := sql.Open("sqlserver", *dsn)
		if err != nil {
			return fmt.Errorf("open sqlserver connection: %w", err)
		}
		defer db.Close()
		engine = factory.NewSQLServerQueryEngine(db, registry, config)
	}

	total, err := engine.Count(ctx, &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		Filter:        filter,
		Search:        *search,
		SearchColumns: []string{contentType.PrimaryFieldDeveloperName},
	})
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", total)
	return nil
}
