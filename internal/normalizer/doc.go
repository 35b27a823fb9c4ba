// Package normalizer is the pipeline stage that repairs segment timing and
// serializes the finished subtitle track to disk.
package normalizer
