// Command windpress builds, watches and serves Tailwind stylesheets held in
// a project directory, and answers intellisense queries about them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/gotailwindcss/windpress"
	"github.com/gotailwindcss/windpress/twcompile"
	"github.com/gotailwindcss/windpress/twconfig"
	"github.com/gotailwindcss/windpress/twfetch"
	"github.com/gotailwindcss/windpress/twfiles"
	"github.com/gotailwindcss/windpress/twpurge"
	"github.com/gotailwindcss/windpress/twvfs"
)

const version = "0.1.0"

var (
	app = kingpin.New("windpress", "Tailwind CSS builds without node")

	configFile = app.Flag("config", "Settings file, .windpress.yaml when present").Short('c').String()
	project    = app.Flag("project", "Project directory").Short('p').String()
	tailwind   = app.Flag("tailwind", "Tailwind major version, 3 or 4").Short('t').String()
	entrypoint = app.Flag("entrypoint", "Stylesheet entry point in the project").Short('e').String()
	twConfig   = app.Flag("tw-config", "Tailwind 3 config module in the project").String()
	verbose    = app.Flag("verbose", "Print verbose output").Short('v').Bool()

	build           = app.Command("build", "Build CSS output")
	buildOutput     = build.Flag("output", "Output file name, use hyphen for stdout").Short('o').String()
	buildMinify     = build.Flag("minify", "Minify the output").Short('m').Bool()
	buildScan       = build.Flag("scan", "Scan file/folder recursively for candidates, the project by default").String()
	buildExt        = build.Flag("ext", "Comma separated list of file extensions (no periods) to scan").Default("html,htm,php,js,jsx,ts,tsx,vue,svelte,md,twig").String()
	buildCandidates = build.Arg("candidates", "Extra candidates").Strings()

	watch       = app.Command("watch", "Rebuild CSS output whenever the project changes")
	watchOutput = watch.Flag("output", "Output file name").Short('o').Required().String()
	watchMinify = watch.Flag("minify", "Minify the output").Short('m').Bool()

	serve     = app.Command("serve", "Serve compiled stylesheets, intellisense and the message bus")
	serveAddr = serve.Flag("addr", "Listen address").Short('a').String()

	vfs          = app.Command("vfs", "Encode or decode a project volume")
	vfsEncode    = vfs.Command("encode", "Print the encoded volume of the project")
	vfsDecode    = vfs.Command("decode", "Decode a volume and list or write its files")
	vfsDecodeIn  = vfsDecode.Arg("input", "Encoded volume file, use hyphen for stdin").Default("-").String()
	vfsDecodeOut = vfsDecode.Flag("output", "Storage URL or directory to write the files to").Short('o').String()

	complete      = app.Command("complete", "Suggest classes for a partial class name")
	completeQuery = complete.Arg("query", "Partial class, e.g. md:bg-red-500/5").Default("").String()
	completeLimit = complete.Flag("limit", "Maximum number of suggestions").Short('n').Int()

	sortCmd     = app.Command("sort", "Sort classes in Tailwind order")
	sortClasses = sortCmd.Arg("classes", "Classes to sort").Required().Strings()

	hover           = app.Command("hover", "Print the CSS of candidates")
	hoverCandidates = hover.Arg("candidates", "Candidates").Required().Strings()

	variables = app.Command("variables", "List the theme variables")

	cache          = app.Command("cache", "Build the cached stylesheet from the content providers")
	cacheKind      = cache.Flag("kind", "full or incremental").Default("full").Enum("full", "incremental")
	cacheProviders = cache.Flag("provider", "Provider to rescan in an incremental build").Strings()
	cacheOutput    = cache.Flag("output", "Storage URL of the cached stylesheet").Short('o').String()

	versionCmd = app.Command("version", "Print versions")
)

func main() {
	app.Version(version)
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render("config:"), err)
		os.Exit(2)
	}
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case build.FullCommand():
		err = runBuild(ctx, cfg)
	case watch.FullCommand():
		err = runWatch(ctx, cfg)
	case serve.FullCommand():
		err = runServe(ctx, cfg)
	case vfsEncode.FullCommand():
		err = runVFSEncode(cfg)
	case vfsDecode.FullCommand():
		err = runVFSDecode(ctx)
	case complete.FullCommand():
		err = runComplete(ctx, cfg)
	case sortCmd.FullCommand():
		err = runSort(ctx, cfg)
	case hover.FullCommand():
		err = runHover(ctx, cfg)
	case variables.FullCommand():
		err = runVariables(ctx, cfg)
	case cache.FullCommand():
		err = runCache(ctx, cfg)
	case versionCmd.FullCommand():
		runVersion(cfg)
	default:
		fmt.Fprintf(os.Stderr, "No command specified\n")
		os.Exit(1)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, styleError.Render("error:"), err)
		os.Exit(1)
	}
}

// loadConfig applies the flags given on the command line over the settings
// file and environment.
func loadConfig(cmd string) (*twconfig.Config, error) {
	over := map[string]any{}
	set := func(key, v string) {
		if v != "" {
			over[key] = v
		}
	}
	set("project", *project)
	set("version", *tailwind)
	set("entrypoint", *entrypoint)
	set("config", *twConfig)
	if *verbose {
		over["log.level"] = "debug"
	}
	switch cmd {
	case build.FullCommand():
		set("build.output", *buildOutput)
		if *buildMinify {
			over["build.minify"] = true
		}
	case watch.FullCommand():
		set("build.output", *watchOutput)
		if *watchMinify {
			over["build.minify"] = true
		}
	case serve.FullCommand():
		set("serve.addr", *serveAddr)
	case cache.FullCommand():
		set("cache.output", *cacheOutput)
	case complete.FullCommand():
		if *completeLimit > 0 {
			over["intellisense.limit"] = *completeLimit
		}
	}
	return twconfig.Load(*configFile, over)
}

func newEngine(cfg *twconfig.Config) (windpress.Engine, error) {
	fetcher := twfetch.New(twfetch.WithTimeout(cfg.Fetch.Timeout), twfetch.WithLogger(slog.Default()))
	return twcompile.New(cfg.EngineVersion(),
		twcompile.WithFetcher(fetcher),
		twcompile.WithRegistry(cfg.Registry),
		twcompile.WithLogger(slog.Default()),
		twcompile.WithCacheSize(cfg.Engine.Cache),
	)
}

func loadProject(cfg *twconfig.Config) (*twvfs.Volume, error) {
	return twfiles.LoadDir(cfg.Project, twfiles.WithLogger(slog.Default()))
}

func newScanner(exts string) *twpurge.Scanner {
	var opts []twpurge.ScannerOption
	if exts != "" {
		opts = append(opts, twpurge.WithExtensions(splitExt(exts)...))
	}
	opts = append(opts, twpurge.WithScannerLogger(slog.Default()))
	return twpurge.NewScanner(opts...)
}
