package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mazrean/formchunk"
	httpform "github.com/mazrean/formchunk/http"
)

const (
	iconDir   = "icons"
	uploadDir = "uploads"
)

func main() {
	for _, dir := range []string{iconDir, uploadDir} {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			panic(err)
		}
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	mux := http.NewServeMux()

	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		parser, err := httpform.NewParser(r,
			formchunk.WithRepository(uploadDir),
			formchunk.WithRandomFileNames(),
			formchunk.WithAllowedTypes("image/png"),
			formchunk.WithMaxPartSize(1*formchunk.MB),
			formchunk.WithLogger(logger),
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = parser.Register("icon", func(part *formchunk.Part, form *formchunk.Form) error {
			id, _, _ := form.Value("id")
			if id == "" || id != filepath.Base(id) {
				return fmt.Errorf("invalid id: %q", id)
			}
			iconPath := filepath.Join(iconDir, id)

			_, err := os.Stat(iconPath)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to check file existence: %w", err)
			}

			if err == nil {
				return errUserExists
			}

			err = part.ToFile(iconPath)
			if err != nil {
				return fmt.Errorf("failed to store icon: %w", err)
			}

			return nil
		}, formchunk.WithRequiredPart("id"))
		if err != nil {
			http.Error(w, "failed to register hook", http.StatusInternalServerError)
			return
		}

		form, err := parser.Parse()
		switch {
		case errors.Is(err, errUserExists):
			http.Error(w, "user already exists", http.StatusConflict)
			return
		case errors.Is(err, formchunk.ErrThresholdExceeded):
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer form.RemoveAll()

		if len(form.Rejected) != 0 {
			http.Error(w, "content type is not supported", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusCreated)
	})
	mux.Handle("/icons/", http.StripPrefix("/icons/", http.FileServer(http.Dir(iconDir))))

	err := http.ListenAndServe(":8080", mux)
	if err != nil {
		panic(err)
	}
}

var errUserExists = errors.New("user already exists")
