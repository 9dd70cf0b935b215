/*
Package hmns3 is a tiny stand-in for an S3 bucket that keeps objects on the
local filesystem. It understands just enough of the API for the syllabus file
store: creating buckets and putting, getting and deleting objects with
path-style URLs. It is for development only.
*/
package hmns3

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.handmade.network/hmn/syllabus/src/jobs"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/oops"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type server struct {
	dir    string
	logger *zerolog.Logger
}

// Handler serves buckets stored as directories under dir.
func Handler(dir string, logger *zerolog.Logger) http.Handler {
	if logger == nil {
		logger = logging.GlobalLogger()
	}
	return &server{dir: dir, logger: logger}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key := bucketKey(r)
	s.logger.Debug().
		Str("method", r.Method).
		Str("bucket", bucket).
		Str("key", key).
		Msg("local s3 request")

	if bucket == "" {
		writeError(w, http.StatusBadRequest, "InvalidBucketName", "no bucket given")
		return
	}

	bucketDir := filepath.Join(s.dir, bucket)

	if key == "" {
		switch r.Method {
		case http.MethodPut:
			if err := os.MkdirAll(bucketDir, fs.ModePerm); err != nil {
				s.internalError(w, oops.New(err, "failed to create bucket dir"))
				return
			}
			w.Header().Set("Location", "/"+bucket)
			w.WriteHeader(http.StatusOK)
		case http.MethodHead:
			if !dirExists(bucketDir) {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			writeError(w, http.StatusNotImplemented, "NotImplemented", "bucket operation not supported")
		}
		return
	}

	if !dirExists(bucketDir) {
		writeError(w, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return
	}
	objectPath := filepath.Join(bucketDir, key)

	switch r.Method {
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.internalError(w, oops.New(err, "failed to read object body"))
			return
		}
		if err := os.WriteFile(objectPath, body, 0o644); err != nil {
			s.internalError(w, oops.New(err, "failed to write object"))
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		content, err := os.ReadFile(objectPath)
		if errors.Is(err, fs.ErrNotExist) {
			writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
			return
		} else if err != nil {
			s.internalError(w, oops.New(err, "failed to read object"))
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(content)
		}
	case http.MethodDelete:
		err := os.Remove(objectPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.internalError(w, oops.New(err, "failed to delete object"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusNotImplemented, "NotImplemented", "object operation not supported")
	}
}

func (s *server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("local s3 request failed")
	writeError(w, http.StatusInternalServerError, "InternalError", err.Error())
}

type errorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Keys are flattened into a single file name per object.
func bucketKey(r *http.Request) (string, string) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	slashIdx := strings.IndexByte(path, '/')
	if slashIdx == -1 {
		return path, ""
	}
	return path[:slashIdx], strings.ReplaceAll(path[slashIdx+1:], "/", "~")
}

// Start runs the stand-in on addr until the job is canceled.
func Start(addr, dir string) *jobs.Job {
	return jobs.Run("local s3", func(job *jobs.Job) {
		if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
			job.Logger.Error().Err(err).Msg("failed to create local s3 dir")
			return
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: Handler(dir, job.Logger),
		}

		go func() {
			<-job.Canceled()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()

		job.Logger.Info().Str("addr", addr).Str("dir", dir).Msg("Serving local s3")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			job.Logger.Error().Err(err).Msg("local s3 server failed")
		}
	})
}

func NewCommand(defaultAddr, defaultDir string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "s3 [storage folder]",
		Short: "Run a local s3 server that stores in the filesystem",
		Run: func(cmd *cobra.Command, args []string) {
			dir := defaultDir
			if len(args) > 0 {
				dir = args[0]
			}

			job := Start(addr, dir)
			<-job.Finished()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "Address to listen on")
	return cmd
}
