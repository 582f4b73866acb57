package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/loamcms/loam"
)

// runValidateType checks a content type definition document and prints
// a short field summary on success.
func runValidateType(args []string) error {
	fs := flag.NewFlagSet("validate-type", flag.ContinueOnError)
	typePath := fs.String("type", "", "path to the content type definition JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *typePath == "" {
		return fmt.Errorf("-type is required")
	}

	data, err := os.ReadFile(*typePath)
	if err != nil {
		return err
	}
	contentType, err := loam.ParseContentType(data)
	if err != nil {
		return err
	}

	fmt.Printf("content type %q (%s): %d fields\n", contentType.DeveloperName, contentType.ID, len(contentType.Fields))
	for _, field := range contentType.Fields {
		fieldType, err := field.ResolveType()
		if err != nil {
			return err
		}
		fmt.Printf("  %-24s %s\n", field.DeveloperName, fieldType.DeveloperName)
	}
	return nil
}
