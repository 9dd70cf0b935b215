package website

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"time"

	"git.handmade.network/hmn/syllabus/src/assets"
	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/hmns3"
	"git.handmade.network/hmn/syllabus/src/jobs"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"git.handmade.network/hmn/syllabus/src/templates"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var WebsiteCommand = &cobra.Command{
	Use:   "syllabus",
	Short: "Run the course syllabus website",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		runWebsite()
	},
}

func init() {
	WebsiteCommand.AddCommand(hmns3.NewCommand(config.Config.LocalS3.Addr, config.Config.LocalS3.Dir))
}

func runWebsite() {
	logging.Info().Msg("Starting the syllabus website")
	templates.Init()

	conn := db.NewConnPool()
	defer conn.Close()
	if err := db.WaitForConnection(context.Background(), conn, time.Minute); err != nil {
		logging.Fatal().Err(err).Msg("Could not reach the database")
	}

	storage, err := assets.NewStorage(config.Config.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Could not set up syllabus file storage")
	}

	backgroundJobs := startBackgroundJobs(conn)
	server := &http.Server{
		Addr:    config.Config.Addr,
		Handler: NewWebsiteRoutes(newDependencies(conn, storage)),
	}

	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Serving the website")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("Server shut down unexpectedly")
		}
	}()

	// pprof registers itself on the default mux. Not shut down gracefully.
	go func() {
		err := http.ListenAndServe(config.Config.PrivateAddr, nil)
		logging.Warn().Err(err).Msg("Private server stopped")
	}()

	waitForInterrupt(server, backgroundJobs)
}

func newDependencies(conn *pgxpool.Pool, storage *assets.Storage) Dependencies {
	return Dependencies{
		Conn:    conn,
		Courses: NewDBCourseDirectory(conn),
		Syllabi: &syllabus.Manager{
			Store:       &syllabus.PostgresStore{Conn: conn},
			Files:       &assets.SyllabusFiles{Conn: conn, Storage: storage},
			MaxFileSize: config.Config.Uploads.MaxFileSize,
		},
	}
}

func startBackgroundJobs(conn *pgxpool.Pool) jobs.Jobs {
	localS3 := jobs.Noop("local s3")
	if config.Config.LocalS3.Enabled {
		localS3 = hmns3.Start(config.Config.LocalS3.Addr, config.Config.LocalS3.Dir)
	}
	return jobs.Jobs{
		auth.PeriodicallyDeleteExpiredSessions(conn),
		localS3,
	}
}

/*
Blocks until the first SIGINT, then stops the server and the background jobs
and returns once both are done. A second SIGINT exits the process immediately.
*/
func waitForInterrupt(server *http.Server, backgroundJobs jobs.Jobs) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	<-signals
	logging.Info().Msg("Shutting down the website")

	go func() {
		<-signals
		logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the website")
		os.Exit(1)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if unfinished := backgroundJobs.CancelAndWait(shutdownTimeout); len(unfinished) > 0 {
			logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
			return
		}
		logging.Info().Msg("Background jobs closed gracefully")
	}()
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Server did not shut down gracefully")
		}
	}()
	wg.Wait()
}
