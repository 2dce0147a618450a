/*
Package cli provides helpers shared by the reloadr commands.

Output Formatting:

Commands print results as text tables, JSON or CSV. Tabular results
implement Table:

	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, rows); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
