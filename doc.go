// Package ytscribe provides resumable bulk transcript extraction for
// YouTube channels.
//
// The library is organized around a small set of collaborators that the
// extract.Runner drives:
//
//   - youtube.VideoLister: lists a channel's uploads via the Data API
//   - youtube.TranscriptSource: fetches caption tracks with language
//     preference handling
//   - classify: assigns each video to a tractate and lecture series
//   - sink.Sink: files transcripts into the organized output tree
//   - storage.ProgressStore: the checkpointed record of what is done
//   - report.Writer: catalog, summary, and markdown indexes
//
// # Quick Start
//
// Wire the collaborators and run:
//
//	store, err := storage.NewJSONProgressStore("extraction_progress.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	lister, err := youtube.NewAPILister(ctx, apiKey, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	runner, err := extract.NewRunner(extract.Deps{
//		Lister: lister,
//		Source: youtube.NewTimedtextClient(nil, nil),
//		Sink:   sink.NewFileSink("Transcripts", nil),
//		Store:  store,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sum, err := runner.Run(ctx, extract.Options{
//		Channel:   "@MercazDafYomi",
//		BatchSize: 50,
//		Retry:     retry.DefaultConfig(),
//	})
//
// A run ends in one of four states: completed, halted because the source
// throttled the client, canceled, or aborted on a local error. In every
// case the progress file reflects all finished batches, so the next run
// picks up exactly where this one stopped.
//
// # Resumability
//
// Progress is the progress file, not the output tree. Videos recorded as
// completed or permanently failed are never fetched again; everything else
// is pending. The file is written atomically after every batch and is
// plain indented JSON with sorted ID lists, so checkpoints diff cleanly.
//
// # Error taxonomy
//
// Fetch errors fall into a small taxonomy that decides control flow:
// transient errors consume retry attempts, a missing transcript fails the
// video permanently, and a throttling response from YouTube halts the
// whole run so the block is not made worse.
package ytscribe
