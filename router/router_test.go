package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/franela/goblin"
	"github.com/gin-gonic/gin"

	"github.com/artera/storaged/config"
	"github.com/artera/storaged/filesystem"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	tmp, err := os.MkdirTemp(os.TempDir(), "artera")
	if err != nil {
		panic(err)
	}

	cfg := config.Default()
	cfg.Storage.RootDirectory = filepath.Join(tmp, "storage")

	fs := filesystem.New(cfg.Storage.RootDirectory, cfg.Storage.CaseInsensitiveSort)
	if _, err := fs.Ensure(nil); err != nil {
		panic(err)
	}

	return Configure(cfg, fs)
}

func perform(r *gin.Engine, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartUpload(folder, filename string, content []byte, overwrite string) ([]byte, string) {
	b := &bytes.Buffer{}
	w := multipart.NewWriter(b)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		panic(err)
	}
	fw.Write(content)
	w.WriteField("folder_path", folder)
	if overwrite != "" {
		w.WriteField("overwrite", overwrite)
	}
	w.Close()
	return b.Bytes(), w.FormDataContentType()
}

func TestRouter_Folders(t *testing.T) {
	g := Goblin(t)
	r := newTestRouter()

	g.Describe("folder endpoints", func() {
		g.It("creates a folder and reports an existing one as success", func() {
			body := []byte(`{"path":"projects/p1/assets"}`)

			w := perform(r, http.MethodPost, "/api/folders/create", body, "application/json")
			g.Assert(w.Code).Equal(http.StatusCreated)

			w = perform(r, http.MethodPost, "/api/folders/create", body, "application/json")
			g.Assert(w.Code).Equal(http.StatusOK)
		})

		g.It("rejects a traversal path with a 400", func() {
			w := perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"../../etc"}`), "application/json")
			g.Assert(w.Code).Equal(http.StatusBadRequest)
		})

		g.It("deletes a folder and everything below it", func() {
			perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"projects/p2/docs"}`), "application/json")

			w := perform(r, http.MethodDelete, "/api/folders/delete", []byte(`{"path":"projects/p2"}`), "application/json")
			g.Assert(w.Code).Equal(http.StatusOK)

			w = perform(r, http.MethodGet, "/api/files/list?path=projects/p2", nil, "")
			g.Assert(w.Code).Equal(http.StatusNotFound)
		})

		g.It("returns a 404 deleting a folder that does not exist", func() {
			w := perform(r, http.MethodDelete, "/api/folders/delete", []byte(`{"path":"missing"}`), "application/json")
			g.Assert(w.Code).Equal(http.StatusNotFound)
		})

		g.It("refuses to delete the storage root", func() {
			w := perform(r, http.MethodDelete, "/api/folders/delete", []byte(`{"path":"."}`), "application/json")
			g.Assert(w.Code).Equal(http.StatusBadRequest)
		})
	})
}

func TestRouter_Files(t *testing.T) {
	g := Goblin(t)
	r := newTestRouter()

	g.Describe("file endpoints", func() {
		g.It("uploads into an existing folder", func() {
			perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"docs"}`), "application/json")

			body, ct := multipartUpload("docs", "doc.txt", []byte("file content"), "")
			w := perform(r, http.MethodPost, "/api/files/upload", body, ct)
			g.Assert(w.Code).Equal(http.StatusCreated)
		})

		g.It("returns a 404 uploading into a folder that does not exist", func() {
			body, ct := multipartUpload("missing/docs", "doc.txt", []byte("x"), "true")
			w := perform(r, http.MethodPost, "/api/files/upload", body, ct)
			g.Assert(w.Code).Equal(http.StatusNotFound)
		})

		g.It("conflicts on a duplicate upload without overwrite", func() {
			perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"dup"}`), "application/json")

			body, ct := multipartUpload("dup", "doc.txt", []byte("first"), "false")
			w := perform(r, http.MethodPost, "/api/files/upload", body, ct)
			g.Assert(w.Code).Equal(http.StatusCreated)

			body, ct = multipartUpload("dup", "doc.txt", []byte("second"), "false")
			w = perform(r, http.MethodPost, "/api/files/upload", body, ct)
			g.Assert(w.Code).Equal(http.StatusConflict)
		})

		g.It("lists uploaded content with sizes and a total count", func() {
			perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"listing"}`), "application/json")
			body, ct := multipartUpload("listing", "data.bin", []byte("12345"), "true")
			perform(r, http.MethodPost, "/api/files/upload", body, ct)

			w := perform(r, http.MethodGet, "/api/files/list?path=listing&recursive=false", nil, "")
			g.Assert(w.Code).Equal(http.StatusOK)

			var out struct {
				Items []struct {
					Name string `json:"name"`
					Kind string `json:"type"`
					Size *int64 `json:"size"`
				} `json:"items"`
				TotalCount int `json:"total_count"`
			}
			g.Assert(json.Unmarshal(w.Body.Bytes(), &out)).IsNil()
			g.Assert(out.TotalCount).Equal(1)
			g.Assert(out.Items[0].Name).Equal("data.bin")
			g.Assert(out.Items[0].Kind).Equal("file")
			g.Assert(*out.Items[0].Size).Equal(int64(5))
		})

		g.It("returns the nested tree view", func() {
			perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"tree/nested"}`), "application/json")

			w := perform(r, http.MethodGet, "/api/files/tree?path=tree", nil, "")
			g.Assert(w.Code).Equal(http.StatusOK)

			var out struct {
				Tree []struct {
					Name     string            `json:"name"`
					Children []json.RawMessage `json:"children"`
				} `json:"tree"`
				TotalFolders int `json:"total_folders"`
			}
			g.Assert(json.Unmarshal(w.Body.Bytes(), &out)).IsNil()
			g.Assert(len(out.Tree)).Equal(1)
			g.Assert(out.Tree[0].Name).Equal("nested")
			g.Assert(out.TotalFolders).Equal(1)
		})

		g.It("deletes a file but refuses a folder through the file endpoint", func() {
			perform(r, http.MethodPost, "/api/folders/create", []byte(`{"path":"mixed"}`), "application/json")
			body, ct := multipartUpload("mixed", "doc.txt", []byte("x"), "true")
			perform(r, http.MethodPost, "/api/files/upload", body, ct)

			w := perform(r, http.MethodDelete, "/api/files/delete?file_path=mixed", nil, "")
			g.Assert(w.Code).Equal(http.StatusBadRequest)

			w = perform(r, http.MethodDelete, "/api/files/delete?file_path=mixed/doc.txt", nil, "")
			g.Assert(w.Code).Equal(http.StatusOK)

			w = perform(r, http.MethodDelete, "/api/files/delete?file_path=mixed/doc.txt", nil, "")
			g.Assert(w.Code).Equal(http.StatusNotFound)
		})

		g.It("requires a file_path parameter for deletion", func() {
			w := perform(r, http.MethodDelete, "/api/files/delete", nil, "")
			g.Assert(w.Code).Equal(http.StatusBadRequest)
		})
	})
}

func TestRouter_System(t *testing.T) {
	g := Goblin(t)
	r := newTestRouter()

	g.Describe("system endpoints", func() {
		g.It("reports daemon information", func() {
			w := perform(r, http.MethodGet, "/api", nil, "")
			g.Assert(w.Code).Equal(http.StatusOK)

			var out struct {
				Status  string `json:"status"`
				Version string `json:"version"`
			}
			g.Assert(json.Unmarshal(w.Body.Bytes(), &out)).IsNil()
			g.Assert(out.Status).Equal("running")
		})

		g.It("reports a healthy storage root", func() {
			w := perform(r, http.MethodGet, "/health", nil, "")
			g.Assert(w.Code).Equal(http.StatusOK)
		})
	})
}
