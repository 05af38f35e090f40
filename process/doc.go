// Package process starts filter subprocesses whose standard input and output
// are streamed by the caller.
//
// Each process runs in its own process group so the whole tree can be
// signalled. Cancelling the start context sends SIGTERM to the group and
// SIGKILL after the grace period; Kill skips the grace period entirely.
//
//	p, err := process.Start(ctx, process.Command{Binary: "awk", Args: []string{"{print $1*10}"}})
//	if err != nil {
//	    return err // SETUP_FAILURE when the binary cannot be executed
//	}
//	go feed(p.Stdin)   // close Stdin to signal end of input
//	go drain(p.Stdout)
//	res, err := p.Wait()
package process
