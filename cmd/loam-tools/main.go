package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		if err := runCompile(os.Args[2:]); err != nil {
			sugar.Fatalf("compile: %v", err)
		}
	case "validate-type":
		if err := runValidateType(os.Args[2:]); err != nil {
			sugar.Fatalf("validate-type: %v", err)
		}
	case "count":
		if err := runCount(os.Args[2:]); err != nil {
			sugar.Fatalf("count: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: loam-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  compile         Compile a filter tree into SQL for one or both dialects")
	logger.Info("  validate-type   Validate a content type definition document")
	logger.Info("  count           Count matching content items against a live database")
}
