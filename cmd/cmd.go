package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/recognition/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

func Execute(args []string, bArgs BuildArgs) error {
	return newApp(bArgs).Run(args)
}

func newApp(bArgs BuildArgs) *cli.App {
	currentBuild = bArgs
	app := cli.NewApp()
	app.Name = "recognition"
	app.HelpName = "recognition"
	app.Usage = "Recognition page daemon and client."
	app.Version = fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType)
	app.UsageText = "recognition <command> [arguments...]"
	app.Description = DESCRIPTION
	app.CustomAppHelpTemplate = HELP_TEMPL
	app.OnUsageError = common.UsageErrorCallback
	app.HideHelp = true
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:               "serve",
			Aliases:            []string{"daemon"},
			Usage:              "start the recognition daemon",
			Action:             serve,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        ServeDescription,
			Flags:              serveFlags,
		},
		{
			Name:               "people",
			Aliases:            []string{"p"},
			Usage:              "list visible people",
			Action:             people,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        PeopleDescription,
			Flags:              peopleFlags,
		},
		{
			Name:               "person",
			Usage:              "show one person",
			UsageText:          "<id>",
			Action:             person,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        PersonDescription,
			Flags:              clientFlags,
		},
		{
			Name:               "validate",
			Usage:              "check people.json",
			Action:             validate,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        ValidateDescription,
			Flags:              validateFlags,
		},
		{
			Name:               "launch",
			Aliases:            []string{"l"},
			Usage:              "show or set the next rocket launch",
			Action:             launchCmd,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        LaunchDescription,
			Flags:              launchFlags,
		},
		{
			Name:               "scroll",
			Usage:              "report a scroll event",
			Action:             scrollCmd,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        ScrollDescription,
			Flags:              clientFlags,
		},
		{
			Name:               "queue",
			Aliases:            []string{"q"},
			Usage:              "show load queue counters",
			Action:             queueCmd,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        QueueDescription,
			Flags:              clientFlags,
		},
		{
			Name:               "preload",
			Usage:              "fetch every referenced image through a load queue",
			Action:             preloadCmd,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        PreloadDescription,
			Flags:              preloadFlags,
		},
		{
			Name:               "crashlog",
			Usage:              "print or clear the crash log",
			Action:             crashLogCmd,
			OnUsageError:       common.UsageErrorCallback,
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Description:        CrashLogDescription,
			Flags:              crashLogFlags,
		},
		{
			Name:    "help",
			Aliases: []string{"h"},
			Usage:   "prints the help message",
			Action:  common.Help,
		},
		{
			Name:               "version",
			Aliases:            []string{"v"},
			Usage:              "prints installed version of recognition",
			UsageText:          " ",
			CustomHelpTemplate: CMD_HELP_TEMPL,
			Action:             common.GetVersion,
		},
	}
	app.Action = common.Help
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app
}
