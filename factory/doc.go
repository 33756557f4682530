// Package factory provides configuration templates for common pipeline
// shapes and Builder, a fluent assembler for pipeline.Executor.
package factory
