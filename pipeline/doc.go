// Package pipeline runs one column of a tab-separated stream through an
// external filter command and stitches the filtered values back into place.
//
// Two flows run concurrently around the filter subprocess. The splitter reads
// input lines, queues everything except the selected field and writes that
// field to the filter. The merger reads the filter's output and pairs each
// line, in order, with the oldest queued remainder. The queue is unbounded,
// so a slow filter never stalls the splitter.
//
// The filter must emit exactly one line per line it reads. A line without
// the selected column, an extra output line, or a missing one is fatal: the
// filter's process group is killed and Run returns immediately.
//
//	res, err := pipeline.NewRunner(pipeline.WithStarter(adapter)).Run(ctx, pipeline.Job{
//	    Column:  1,
//	    Command: process.Command{Binary: "sed", Args: []string{"s/a/b/"}},
//	    Input:   os.Stdin,
//	    Output:  os.Stdout,
//	})
//
// After a fatal error the splitter may stay blocked reading Input. Callers
// are expected to exit the process.
//
// The flows are built from small pull-based stream stages (From, Map, Tap,
// Drain) that do no work until drained.
package pipeline
