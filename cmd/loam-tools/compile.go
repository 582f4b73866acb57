package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/loamcms/loam"
	"github.com/loamcms/loam/internal"
)

// runCompile loads a content type definition and a filter tree and
// prints the SQL the engine would execute, without touching a database.
func runCompile(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	typePath := fs.String("type", "", "path to the content type definition JSON")
	filterPath := fs.String("filter", "", "path to the filter tree JSON (optional)")
	dialectName := fs.String("dialect", "both", "postgres, sqlserver or both")
	search := fs.String("search", "", "search text")
	searchColumns := fs.String("search-columns", "", "comma-separated search columns")
	orderBy := fs.String("order-by", "", "order by, e.g. 'title asc'")
	pageSize := fs.Int("page-size", 0, "page size (0 uses the default)")
	page := fs.Int("page", 1, "1-based page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *typePath == "" {
		return fmt.Errorf("-type is required")
	}
	typeData, err := os.ReadFile(*typePath)
	if err != nil {
		return err
	}
	contentType, err := loam.ParseContentType(typeData)
	if err != nil {
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

	req := &loam.ContentQueryRequest{
		ContentTypeID: contentType.ID,
		Search:        *search,
		Filter:        filter,
		PageSize:      *pageSize,
		PageNumber:    *page,
		OrderBy:       *orderBy,
	}
	if *searchColumns != "" {
		req.SearchColumns = strings.Split(*searchColumns, ",")
	}

	dialects := []loam.Dialect{loam.DialectPostgres, loam.DialectSQLServer}
	if *dialectName != "both" {
		dialect, err := loam.ParseDialect(*dialectName)
		if err != nil {
			return err
		}
		dialects = []loam.Dialect{dialect}
	}

	for _, dialect := range dialects {
		sqlText, err := compileFor(dialect, contentType, req)
		if err != nil {
			return fmt.Errorf("%s: %w", dialect, err)
		}
		fmt.Printf("-- %s\n%s\n", dialect, sqlText)
	}
	return nil
}

func compileFor(dialect loam.Dialect, contentType *loam.ContentType, req *loam.ContentQueryRequest) (string, error) {
	config := loam.DefaultConfig()
	var engine *internal.QueryEngine
	switch dialect {
	case loam.DialectPostgres:
		engine = internal.NewPostgresQueryEngine(nil, nil, config)
	case loam.DialectSQLServer:
		engine = internal.NewSQLServerQueryEngine(nil, nil, config)
	default:
		return "", loam.NewUnsupportedDialectError(string(dialect))
	}
	return engine.BuildListSQL(contentType, req, true)
}
