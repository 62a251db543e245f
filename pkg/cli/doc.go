/*
Package cli holds helpers shared by the beacon commands.

Errors carry a process exit code; main turns any returned error into one with
ExitCode:

	if err := rootCmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Results are printed through a Formatter selected by the --format flag. Types
implementing TextWriter control their own text rendering:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

SetupSignalHandler cancels a context on SIGINT or SIGTERM for graceful
shutdown of beacon run.
*/
package cli
