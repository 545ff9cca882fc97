/*
Package cli provides command-line helpers shared by the quotad commands.

Output Formatting:

Commands render results as text, JSON or CSV. Results implementing Table are
printed as aligned columns in text mode and as rows in CSV mode:

	format, err := cli.ParseFormat(flagFormat)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, rows); err != nil {
		return err
	}

Errors:

Commands return *ConfigError for configuration problems and *CommandError
for everything else. ExitCode maps them to the process exit status.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

ReloadSignal delivers SIGHUP, which quotad run treats as a request to
reload its configuration file.
*/
package cli
