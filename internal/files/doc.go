// Package files groups the file-side stages of a load.
//
//   - filesystem: OS and in-memory filesystem providers
//   - scanner: discovery of dataset documents under a root
//   - loader: per-file transactional application of extracted rows
//
//	provider := filesystem.NewOSFileSystem()
//	l := loader.New(scanner.New(provider), provider, retry.NewDefaultExecutor(), logger)
//	report, err := l.Load(ctx, loader.NewSongExtractor(), "data/song_data", store)
package files
