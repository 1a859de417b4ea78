package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/paperdex/paperdex/internal/api"
	"github.com/paperdex/paperdex/internal/client"
	"github.com/paperdex/paperdex/internal/config"
	"github.com/paperdex/paperdex/internal/events"
	"github.com/paperdex/paperdex/internal/extractor"
	"github.com/paperdex/paperdex/internal/indexer"
	"github.com/paperdex/paperdex/internal/log"
	"github.com/paperdex/paperdex/internal/metastore"
	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/rename"
	"github.com/paperdex/paperdex/internal/search"
	"github.com/paperdex/paperdex/internal/server"
	"github.com/paperdex/paperdex/internal/smartgroup"
	"github.com/paperdex/paperdex/internal/store"
	"github.com/paperdex/paperdex/internal/watcher"
	"github.com/spf13/cobra"
)

var (
	Version   string = "dev"
	buildTime string = "unknown"
	commit    string = "unknown"

	configFile   string
	databasePath string
	listenAddr   string
	socketPath   string
	noWatch      bool
	httpOnly     bool
	socketOnly   bool

	searchLimit  int
	searchOffset int
	searchFolder string
	searchJSON   bool

	paperFolder string
	paperAuthor string
	paperYear   int
	paperPDF    string

	groupCriteria string
	groupMode     string
	groupIcon     string
	groupColor    string

	watchTarget     string
	watchAutoRename bool

	folderTopic string
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0caf5"))
	markStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0af68"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
)

var rootCmd = &cobra.Command{
	Use:   "pdx",
	Short: "Reference library service",
	Long:  "A reference library service with full-text PDF search and smart groups",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the library service",
	RunE:  runServe,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across indexed PDFs",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the full-text index",
}

var indexPaperCmd = &cobra.Command{
	Use:   "paper <paper-id>",
	Short: "Index one paper's PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexPaper,
}

var indexAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Index every paper with an unindexed PDF",
	RunE:  runIndexAll,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status <paper-id>",
	Short: "Show indexing status for a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexStatus,
}

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Manage papers",
}

var paperAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperAdd,
}

var paperListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers",
	RunE:  runPaperList,
}

var paperShowCmd = &cobra.Command{
	Use:   "show <paper-id>",
	Short: "Show one paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperShow,
}

var paperRmCmd = &cobra.Command{
	Use:   "rm <paper-id>",
	Short: "Delete a paper and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperRm,
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage smart groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved smart groups",
	RunE:  runGroupList,
}

var groupPredefinedCmd = &cobra.Command{
	Use:   "predefined",
	Short: "List the built-in smart groups",
	RunE:  runGroupPredefined,
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a smart group from criteria JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupCreate,
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <group-id>",
	Short: "Delete a smart group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupDelete,
}

var groupPapersCmd = &cobra.Command{
	Use:   "papers <group-id>",
	Short: "List papers matching a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupPapers,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage watch-folder monitoring",
}

var watchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check watcher status",
	RunE:  runWatchStatus,
}

var watchStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start watch-folder monitoring",
	RunE:  runWatchStart,
}

var watchStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop watch-folder monitoring",
	RunE:  runWatchStop,
}

var watchScanCmd = &cobra.Command{
	Use:   "scan [watch-folder-id]",
	Short: "Import PDFs already sitting in watch folders",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatchScan,
}

var watchAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a directory as a watch folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchAdd,
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered watch folders",
	RunE:  runWatchList,
}

var watchRmCmd = &cobra.Command{
	Use:   "rm <watch-folder-id>",
	Short: "Remove a watch folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchRm,
}

var watchToggleCmd = &cobra.Command{
	Use:   "toggle <watch-folder-id>",
	Short: "Enable or disable a watch folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchToggle,
}

var renameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename PDF files from paper metadata",
}

var renamePreviewCmd = &cobra.Command{
	Use:   "preview <paper-id>",
	Short: "Show the filename the pattern would produce",
	Args:  cobra.ExactArgs(1),
	RunE:  runRenamePreview,
}

var renameApplyCmd = &cobra.Command{
	Use:   "apply <paper-id>",
	Short: "Rename the paper's PDF on disk",
	Args:  cobra.ExactArgs(1),
	RunE:  runRenameApply,
}

var renameBatchCmd = &cobra.Command{
	Use:   "batch <paper-id>...",
	Short: "Rename several papers, collecting per-paper failures",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRenameBatch,
}

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage topics",
}

var topicAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runTopicAdd,
}

var topicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List topics",
	RunE:  runTopicList,
}

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a folder under a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderAdd,
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List folders",
	RunE:  runFolderList,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stream daemon events (paper imported, indexed, renamed)",
	RunE:  runEvents,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		log.Infof("pdx version %s", Version)
		log.Infof("  Build time: %s", buildTime)
		log.Infof("  Commit: %s", commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: ~/.config/paperdex/config.toml)")

	serveCmd.Flags().StringVar(&databasePath, "db", "", "library database path")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&socketPath, "socket-path", "", "unix socket path")
	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false, "disable watch-folder monitoring")
	serveCmd.Flags().BoolVar(&httpOnly, "http", false, "run HTTP server only (no unix socket)")
	serveCmd.Flags().BoolVar(&socketOnly, "socket", false, "run unix socket server only (no HTTP)")

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "maximum number of results")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().StringVar(&searchFolder, "folder", "", "restrict to one folder ID")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results in JSON format")

	paperAddCmd.Flags().StringVar(&paperFolder, "folder", "", "folder ID the paper belongs to")
	paperAddCmd.Flags().StringVar(&paperAuthor, "author", "", "author list")
	paperAddCmd.Flags().IntVar(&paperYear, "year", 0, "publication year")
	paperAddCmd.Flags().StringVar(&paperPDF, "pdf", "", "path to the PDF file")
	paperAddCmd.MarkFlagRequired("folder")
	paperListCmd.Flags().StringVar(&paperFolder, "folder", "", "restrict to one folder ID")

	groupCreateCmd.Flags().StringVar(&groupCriteria, "criteria", "[]", "criteria as a JSON array")
	groupCreateCmd.Flags().StringVar(&groupMode, "mode", "and", "match mode: and, or")
	groupCreateCmd.Flags().StringVar(&groupIcon, "icon", "", "icon name")
	groupCreateCmd.Flags().StringVar(&groupColor, "color", "", "hex color")
	groupPapersCmd.Flags().StringVar(&searchFolder, "folder", "", "restrict to one folder ID")

	watchAddCmd.Flags().StringVar(&watchTarget, "target", "", "folder ID imported papers land in")
	watchAddCmd.Flags().BoolVar(&watchAutoRename, "auto-rename", false, "apply the rename pattern on import")
	watchAddCmd.MarkFlagRequired("target")

	folderAddCmd.Flags().StringVar(&folderTopic, "topic", "", "topic ID the folder belongs to")
	folderAddCmd.MarkFlagRequired("topic")

	indexCmd.AddCommand(indexPaperCmd, indexAllCmd, indexStatusCmd)
	paperCmd.AddCommand(paperAddCmd, paperListCmd, paperShowCmd, paperRmCmd)
	groupCmd.AddCommand(groupListCmd, groupPredefinedCmd, groupCreateCmd, groupDeleteCmd, groupPapersCmd)
	watchCmd.AddCommand(watchStatusCmd, watchStartCmd, watchStopCmd, watchScanCmd, watchAddCmd, watchListCmd, watchRmCmd, watchToggleCmd)
	renameCmd.AddCommand(renamePreviewCmd, renameApplyCmd, renameBatchCmd)
	topicCmd.AddCommand(topicAddCmd, topicListCmd)
	folderCmd.AddCommand(folderAddCmd, folderListCmd)

	rootCmd.AddCommand(serveCmd, searchCmd, indexCmd, paperCmd, groupCmd, watchCmd, renameCmd, topicCmd, folderCmd, eventsCmd, versionCmd)
}

func buildConfig() *config.Config {
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if databasePath != "" {
		cfg.DatabasePath = databasePath
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	return cfg
}

func dial() *client.Client {
	return client.New(buildConfig().SocketPath)
}

// openLibrary wires the storage side for commands that run without the
// daemon. The caller closes the returned store.
func openLibrary(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DatabasePath)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	meta, err := metastore.New(cfg.MetaPath)
	if err != nil {
		return err
	}
	defer meta.Close()

	bus := events.NewBus()
	idx := indexer.New(s, extractor.New(), bus)
	renamer := rename.New(s, bus)
	engine := search.NewEngine(s)
	importer := watcher.NewImporter(s, meta, idx, renamer, bus, cfg.PDFDir, cfg.Rename)

	w, err := watcher.New(s, importer)
	if err != nil {
		return err
	}

	if cfg.ScanOnStart {
		go func() {
			n, err := w.ScanAll()
			if err != nil {
				log.Errorf("startup scan failed: %v", err)
			} else if n > 0 {
				log.Infof("startup scan imported %d papers", n)
			}
		}()
	}

	if cfg.WatchOnStart && !noWatch {
		if err := w.Start(); err != nil {
			log.Errorf("failed to start watcher: %v", err)
			log.Infof("continuing without watch-folder monitoring")
		}
	}

	if httpOnly && socketOnly {
		return fmt.Errorf("cannot specify both --http and --socket flags")
	}

	runHTTP := !socketOnly && cfg.ListenAddr != ""
	runSocket := !httpOnly
	if httpOnly && cfg.ListenAddr == "" {
		return fmt.Errorf("--http requires listen_addr in config or --listen")
	}

	var httpServer *server.HTTPServer
	var unixServer *server.UnixServer

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)

	if runHTTP {
		httpServer = server.NewHTTP(cfg.ListenAddr, &api.Server{
			Library:  s,
			Searcher: engine,
			Indexer:  idx,
			Watcher:  w,
		})
		go func() {
			errChan <- httpServer.Start()
		}()
	}

	if runSocket {
		router := server.NewRouter(s, engine, idx, w, renamer, cfg.Rename, bus)
		unixServer = server.NewUnix(router, cfg.SocketPath)
		go func() {
			errChan <- unixServer.Start()
		}()
	}

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		log.Infof("received shutdown signal")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if w.IsRunning() {
			w.Stop()
		}

		if unixServer != nil {
			unixServer.Close()
		}
		if httpServer != nil {
			return httpServer.Shutdown(ctx)
		}
		return nil
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	resp, err := dial().Search(query, searchLimit, searchOffset, searchFolder)
	if err != nil {
		cfg := buildConfig()
		s, err := openLibrary(cfg)
		if err != nil {
			return fmt.Errorf("service not running and cannot open library: %v", err)
		}
		defer s.Close()

		var folderID *string
		if searchFolder != "" {
			folderID = &searchFolder
		}
		resp, err = search.NewEngine(s).Search(models.SearchQuery{
			Query:    query,
			Limit:    searchLimit,
			Offset:   searchOffset,
			FolderID: folderID,
		})
		if err != nil {
			return err
		}
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printSearchResults(resp)
	return nil
}

func printSearchResults(resp models.SearchResponse) {
	if resp.Total == 0 {
		fmt.Println(metaStyle.Render("no results"))
		return
	}

	fmt.Println(metaStyle.Render(fmt.Sprintf("%d results", resp.Total)))
	for _, hit := range resp.Results {
		header := titleStyle.Render(hit.PaperTitle)
		if hit.PaperAuthor != "" {
			header += " " + metaStyle.Render(hit.PaperAuthor)
		}
		fmt.Printf("%s %s\n", header, metaStyle.Render(fmt.Sprintf("p.%d", hit.PageNumber)))
		fmt.Printf("  %s\n", renderSnippet(hit.Snippet))
	}
}

// renderSnippet turns the <mark> tags from the snippet function into
// terminal highlighting.
func renderSnippet(snippet string) string {
	out := snippet
	for {
		start := strings.Index(out, "<mark>")
		if start < 0 {
			break
		}
		end := strings.Index(out, "</mark>")
		if end < 0 || end < start {
			break
		}
		hit := out[start+len("<mark>") : end]
		out = out[:start] + markStyle.Render(hit) + out[end+len("</mark>"):]
	}
	return snippetStyle.Render(out)
}

func localIndexer(cfg *config.Config) (*store.Store, *indexer.Indexer, error) {
	s, err := openLibrary(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("service not running and cannot open library: %v", err)
	}
	return s, indexer.New(s, extractor.New(), nil), nil
}

func runIndexPaper(cmd *cobra.Command, args []string) error {
	status, err := dial().IndexPaper(args[0])
	if err != nil {
		s, idx, lerr := localIndexer(buildConfig())
		if lerr != nil {
			return lerr
		}
		defer s.Close()
		status, err = idx.IndexPaper(args[0])
		if err != nil {
			return err
		}
	}
	printIndexStatus(status)
	return nil
}

func runIndexAll(cmd *cobra.Command, args []string) error {
	statuses, err := dial().IndexAll()
	if err != nil {
		s, idx, lerr := localIndexer(buildConfig())
		if lerr != nil {
			return lerr
		}
		defer s.Close()
		statuses, err = idx.IndexAll()
		if err != nil {
			return err
		}
	}

	indexed := 0
	for _, st := range statuses {
		if st.IsComplete {
			indexed++
		} else if st.Error != "" {
			fmt.Printf("%s %s\n", st.PaperID, errStyle.Render(st.Error))
		}
	}
	log.Infof("indexed %d of %d papers", indexed, len(statuses))
	return nil
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	status, err := dial().IndexStatus(args[0])
	if err != nil {
		s, idx, lerr := localIndexer(buildConfig())
		if lerr != nil {
			return lerr
		}
		defer s.Close()
		status, err = idx.Status(args[0])
		if err != nil {
			return err
		}
	}
	printIndexStatus(status)
	return nil
}

func printIndexStatus(status models.IndexingStatus) {
	state := "pending"
	if status.IsComplete {
		state = "indexed"
	}
	fmt.Printf("%s: %s (%d pages)\n", status.PaperID, state, status.IndexedPages)
	if status.Error != "" {
		fmt.Printf("  %s\n", errStyle.Render(status.Error))
	}
}

func runPaperAdd(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	paper, err := s.CreatePaper(store.CreatePaperInput{
		FolderID: paperFolder,
		Title:    args[0],
		Author:   paperAuthor,
		Year:     paperYear,
		PDFPath:  paperPDF,
	})
	if err != nil {
		return err
	}
	fmt.Println(paper.ID)
	return nil
}

func runPaperList(cmd *cobra.Command, args []string) error {
	papers, err := dial().ListPapers(paperFolder)
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()

		var folderID *string
		if paperFolder != "" {
			folderID = &paperFolder
		}
		papers, err = s.ListPapers(folderID)
		if err != nil {
			return err
		}
	}

	for _, p := range papers {
		printPaperLine(p)
	}
	return nil
}

func printPaperLine(p models.Paper) {
	indexed := " "
	if p.IsIndexed {
		indexed = "*"
	}
	year := ""
	if p.Year > 0 {
		year = fmt.Sprintf(" (%d)", p.Year)
	}
	fmt.Printf("%s %s  %s%s %s\n", indexed, metaStyle.Render(p.ID), titleStyle.Render(p.Title), metaStyle.Render(year), p.Author)
}

func runPaperShow(cmd *cobra.Command, args []string) error {
	paper, err := dial().GetPaper(args[0])
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		paper, err = s.GetPaper(args[0])
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(paper)
}

func runPaperRm(cmd *cobra.Command, args []string) error {
	if err := dial().DeletePaper(args[0]); err == nil {
		log.Infof("deleted %s", args[0])
		return nil
	}

	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return fmt.Errorf("service not running and cannot open library: %v", err)
	}
	defer s.Close()

	if err := s.DeletePaper(args[0]); err != nil {
		return err
	}
	log.Infof("deleted %s", args[0])
	return nil
}

func runGroupList(cmd *cobra.Command, args []string) error {
	groups, err := dial().ListGroups()
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		groups, err = s.ListSmartGroups()
		if err != nil {
			return err
		}
	}
	printGroups(groups)
	return nil
}

func runGroupPredefined(cmd *cobra.Command, args []string) error {
	printGroups(smartgroup.Predefined())
	return nil
}

func printGroups(groups []smartgroup.SmartGroup) {
	for _, g := range groups {
		fmt.Printf("%s  %s %s\n", metaStyle.Render(g.ID), titleStyle.Render(g.Name),
			metaStyle.Render(fmt.Sprintf("(%d criteria, %s)", len(g.Criteria), g.MatchMode)))
	}
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	var criteria []smartgroup.Criterion
	if err := json.Unmarshal([]byte(groupCriteria), &criteria); err != nil {
		return fmt.Errorf("invalid criteria JSON: %v", err)
	}

	group, err := dial().CreateGroup(args[0], criteria, groupMode, groupIcon, groupColor)
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		group, err = s.CreateSmartGroup(args[0], criteria, groupMode, groupIcon, groupColor)
		if err != nil {
			return err
		}
	}
	fmt.Println(group.ID)
	return nil
}

func runGroupDelete(cmd *cobra.Command, args []string) error {
	if err := dial().DeleteGroup(args[0]); err == nil {
		log.Infof("deleted group %s", args[0])
		return nil
	}

	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return fmt.Errorf("service not running and cannot open library: %v", err)
	}
	defer s.Close()

	if err := s.DeleteSmartGroup(args[0]); err != nil {
		return err
	}
	log.Infof("deleted group %s", args[0])
	return nil
}

func runGroupPapers(cmd *cobra.Command, args []string) error {
	papers, err := dial().GroupPapers(args[0], searchFolder)
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()

		group, gerr := s.GetSmartGroup(args[0])
		if gerr != nil {
			found := false
			for _, g := range smartgroup.Predefined() {
				if g.ID == args[0] {
					group = g
					found = true
					break
				}
			}
			if !found {
				return gerr
			}
		}

		var folderID *string
		if searchFolder != "" {
			folderID = &searchFolder
		}
		all, lerr := s.ListPapers(folderID)
		if lerr != nil {
			return lerr
		}
		papers = smartgroup.Evaluate(all, group.Criteria, group.MatchMode)
	}

	for _, p := range papers {
		printPaperLine(p)
	}
	return nil
}

func runWatchStatus(cmd *cobra.Command, args []string) error {
	status, err := dial().WatchStatus()
	if err != nil {
		return err
	}
	log.Infof("Watcher status: %s", status)
	return nil
}

func runWatchStart(cmd *cobra.Command, args []string) error {
	status, err := dial().WatchStart()
	if err != nil {
		return err
	}
	log.Infof("%s", status)
	return nil
}

func runWatchStop(cmd *cobra.Command, args []string) error {
	status, err := dial().WatchStop()
	if err != nil {
		return err
	}
	log.Infof("%s", status)
	return nil
}

func runWatchScan(cmd *cobra.Command, args []string) error {
	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	result, err := dial().WatchScan(id)
	if err != nil {
		return err
	}
	log.Infof("imported %v papers", result["imported"])
	return nil
}

func runWatchAdd(cmd *cobra.Command, args []string) error {
	wf, err := dial().AddWatchFolder(args[0], watchTarget, watchAutoRename)
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		wf, err = s.CreateWatchFolder(args[0], watchTarget, watchAutoRename)
		if err != nil {
			return err
		}
	}
	fmt.Println(wf.ID)
	return nil
}

func runWatchList(cmd *cobra.Command, args []string) error {
	folders, err := dial().ListWatchFolders()
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		folders, err = s.ListWatchFolders()
		if err != nil {
			return err
		}
	}

	for _, wf := range folders {
		state := "active"
		if !wf.IsActive {
			state = "paused"
		}
		autoRename := ""
		if wf.AutoRename {
			autoRename = ", auto-rename"
		}
		fmt.Printf("%s  %s %s\n", metaStyle.Render(wf.ID), wf.Path,
			metaStyle.Render(fmt.Sprintf("(%s%s)", state, autoRename)))
	}
	return nil
}

func runWatchRm(cmd *cobra.Command, args []string) error {
	if err := dial().RemoveWatchFolder(args[0]); err == nil {
		log.Infof("removed watch folder %s", args[0])
		return nil
	}

	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return fmt.Errorf("service not running and cannot open library: %v", err)
	}
	defer s.Close()

	if err := s.DeleteWatchFolder(args[0]); err != nil {
		return err
	}
	log.Infof("removed watch folder %s", args[0])
	return nil
}

func runWatchToggle(cmd *cobra.Command, args []string) error {
	wf, err := dial().ToggleWatchFolder(args[0])
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		wf, err = s.ToggleWatchFolder(args[0])
		if err != nil {
			return err
		}
	}

	state := "active"
	if !wf.IsActive {
		state = "paused"
	}
	log.Infof("watch folder %s is now %s", wf.ID, state)
	return nil
}

func runRenamePreview(cmd *cobra.Command, args []string) error {
	res, err := dial().RenamePreview(args[0])
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		res, err = rename.New(s, nil).Preview(args[0], cfg.Rename)
		if err != nil {
			return err
		}
	}
	fmt.Printf("%s -> %s\n", res.OldFilename, titleStyle.Render(res.NewFilename))
	return nil
}

func runRenameApply(cmd *cobra.Command, args []string) error {
	res, err := dial().RenameApply(args[0])
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		res, err = rename.New(s, nil).Apply(args[0], cfg.Rename)
		if err != nil {
			return err
		}
	}
	fmt.Printf("%s -> %s\n", res.OldFilename, titleStyle.Render(res.NewFilename))
	return nil
}

func runRenameBatch(cmd *cobra.Command, args []string) error {
	results, err := dial().RenameBatch(args)
	if err != nil {
		cfg := buildConfig()
		s, serr := openLibrary(cfg)
		if serr != nil {
			return fmt.Errorf("service not running and cannot open library: %v", serr)
		}
		defer s.Close()
		results = rename.New(s, nil).Batch(args, cfg.Rename)
	}

	renamed := 0
	for _, res := range results {
		if res.Success {
			renamed++
			fmt.Printf("%s -> %s\n", res.OldFilename, titleStyle.Render(res.NewFilename))
		} else {
			fmt.Printf("%s %s\n", res.PaperID, errStyle.Render(res.Error))
		}
	}
	log.Infof("renamed %d of %d papers", renamed, len(results))
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	return dial().StreamEvents(func(name string, payload json.RawMessage) error {
		fmt.Printf("%s %s\n", titleStyle.Render(name), snippetStyle.Render(string(payload)))
		return nil
	})
}

func runTopicAdd(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	topic, err := s.CreateTopic(args[0])
	if err != nil {
		return err
	}
	fmt.Println(topic.ID)
	return nil
}

func runTopicList(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	topics, err := s.ListTopics()
	if err != nil {
		return err
	}
	for _, t := range topics {
		fmt.Printf("%s  %s\n", metaStyle.Render(t.ID), titleStyle.Render(t.Name))
	}
	return nil
}

func runFolderAdd(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	folder, err := s.CreateFolder(folderTopic, args[0])
	if err != nil {
		return err
	}
	fmt.Println(folder.ID)
	return nil
}

func runFolderList(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	s, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	folders, err := s.ListFolders(nil)
	if err != nil {
		return err
	}
	for _, f := range folders {
		fmt.Printf("%s  %s %s\n", metaStyle.Render(f.ID), titleStyle.Render(f.Name), metaStyle.Render("topic "+f.TopicID))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
