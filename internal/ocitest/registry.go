// Package ocitest serves a minimal in-memory OCI distribution registry for
// tests. It supports monolithic blob uploads, manifest pushes by tag or
// digest, and HEAD/GET of blobs and manifests.
package ocitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
)

type manifestEntry struct {
	mediaType string
	data      []byte
}

// Registry is an httptest server speaking a subset of the distribution API.
type Registry struct {
	*httptest.Server

	// BlobToken, when set, is required as a bearer token on blob GETs.
	// Pushes and manifest requests stay anonymous.
	BlobToken string

	mu        sync.Mutex
	blobs     map[digest.Digest][]byte
	manifests map[digest.Digest]manifestEntry
	tags      map[string]digest.Digest // repo:tag
	uploads   int
}

// New starts a registry that is closed when tb finishes.
func New(tb testing.TB) *Registry {
	tb.Helper()
	r := &Registry{
		blobs:     make(map[digest.Digest][]byte),
		manifests: make(map[digest.Digest]manifestEntry),
		tags:      make(map[string]digest.Digest),
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	tb.Cleanup(r.Close)
	return r
}

// Host returns the registry host:port.
func (r *Registry) Host() string {
	return strings.TrimPrefix(r.URL, "http://")
}

// Blob returns a stored blob.
func (r *Registry) Blob(d digest.Digest) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blobs[d]
	return b, ok
}

// PutManifest stores a manifest under repo and tag, bypassing the API.
func (r *Registry) PutManifest(repo, tag, mediaType string, data []byte) digest.Digest {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := digest.FromBytes(data)
	r.manifests[d] = manifestEntry{mediaType: mediaType, data: data}
	r.tags[repo+":"+tag] = d
	return d
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	path, ok := strings.CutPrefix(req.URL.Path, "/v2/")
	if !ok {
		writeError(w, http.StatusNotFound, "NAME_UNKNOWN")
		return
	}
	switch {
	case strings.Contains(path, "/blobs/uploads/"):
		repo, id, _ := strings.Cut(path, "/blobs/uploads/")
		r.serveUpload(w, req, repo, id)
	case strings.Contains(path, "/blobs/"):
		repo, ref, _ := strings.Cut(path, "/blobs/")
		r.serveBlob(w, req, repo, ref)
	case strings.Contains(path, "/manifests/"):
		idx := strings.LastIndex(path, "/manifests/")
		r.serveManifest(w, req, path[:idx], path[idx+len("/manifests/"):])
	default:
		writeError(w, http.StatusNotFound, "NAME_UNKNOWN")
	}
}

func (r *Registry) serveUpload(w http.ResponseWriter, req *http.Request, repo, id string) {
	switch req.Method {
	case http.MethodPost:
		r.mu.Lock()
		r.uploads++
		n := r.uploads
		r.mu.Unlock()
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/uploads/%d", repo, n))
		w.Header().Set("Docker-Upload-UUID", strconv.Itoa(n))
		w.WriteHeader(http.StatusAccepted)
	case http.MethodPut:
		if id == "" {
			writeError(w, http.StatusNotFound, "BLOB_UPLOAD_UNKNOWN")
			return
		}
		d, err := digest.Parse(req.URL.Query().Get("digest"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "DIGEST_INVALID")
			return
		}
		data, err := io.ReadAll(req.Body)
		if err != nil || digest.FromBytes(data) != d {
			writeError(w, http.StatusBadRequest, "DIGEST_INVALID")
			return
		}
		r.mu.Lock()
		r.blobs[d] = data
		r.mu.Unlock()
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/blobs/%s", repo, d))
		w.Header().Set("Docker-Content-Digest", d.String())
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *Registry) serveBlob(w http.ResponseWriter, req *http.Request, _, ref string) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.BlobToken != "" && req.Method == http.MethodGet && req.Header.Get("Authorization") != "Bearer "+r.BlobToken {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
		return
	}
	d, err := digest.Parse(ref)
	if err != nil {
		writeError(w, http.StatusBadRequest, "DIGEST_INVALID")
		return
	}
	data, ok := r.Blob(d)
	if !ok {
		writeError(w, http.StatusNotFound, "BLOB_UNKNOWN")
		return
	}
	writeContent(w, req, "application/octet-stream", d, data)
}

func (r *Registry) serveManifest(w http.ResponseWriter, req *http.Request, repo, ref string) {
	switch req.Method {
	case http.MethodPut:
		data, err := io.ReadAll(req.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "MANIFEST_INVALID")
			return
		}
		d := digest.FromBytes(data)
		if refDigest, err := digest.Parse(ref); err == nil && refDigest != d {
			writeError(w, http.StatusBadRequest, "DIGEST_INVALID")
			return
		}
		r.mu.Lock()
		r.manifests[d] = manifestEntry{mediaType: req.Header.Get("Content-Type"), data: data}
		if _, err := digest.Parse(ref); err != nil {
			r.tags[repo+":"+ref] = d
		}
		r.mu.Unlock()
		w.Header().Set("Location", fmt.Sprintf("/v2/%s/manifests/%s", repo, d))
		w.Header().Set("Docker-Content-Digest", d.String())
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet, http.MethodHead:
		r.mu.Lock()
		d, err := digest.Parse(ref)
		if err != nil {
			d = r.tags[repo+":"+ref]
		}
		entry, ok := r.manifests[d]
		r.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "MANIFEST_UNKNOWN")
			return
		}
		writeContent(w, req, entry.mediaType, d, entry.data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeContent(w http.ResponseWriter, req *http.Request, mediaType string, d digest.Digest, data []byte) {
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Docker-Content-Digest", d.String())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodGet {
		w.Write(data)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"code": code, "message": strings.ToLower(code)}},
	})
}
