package server

import (
	"errors"
	"io"
	"net/http"
	"os"
)

// OpenFunc opens a resolved file for reading.
type OpenFunc func(name string) (io.ReadCloser, error)

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// Responder streams resolved files to clients.
type Responder struct {
	chunkSize int
	open      OpenFunc
}

// NewResponder returns a responder that copies files in chunks of at most
// chunkSize bytes. A nil open uses os.Open.
func NewResponder(chunkSize int, open OpenFunc) *Responder {
	if open == nil {
		open = openFile
	}
	return &Responder{chunkSize: chunkSize, open: open}
}

// Respond writes target to w with status 200 and returns the number of body
// bytes written. Nothing is written to w until the first read succeeds, so a
// *TransferError with HeadersSent false leaves w untouched.
func (r *Responder) Respond(w http.ResponseWriter, target Target) (int64, error) {
	f, err := r.open(target.Canonical)
	if err != nil {
		return 0, &TransferError{Op: "open", Path: target.Canonical, Err: err}
	}
	defer f.Close()

	buf := make([]byte, r.chunkSize)
	headersSent := false
	sendHeaders := func() {
		w.Header().Set("Content-Type", ContentType(target.Path))
		w.WriteHeader(http.StatusOK)
		headersSent = true
	}

	var written int64
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if !headersSent {
				sendHeaders()
			}
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return written, &TransferError{Op: "write", Path: target.Canonical, HeadersSent: true, Err: werr}
			}
		}
		if errors.Is(rerr, io.EOF) {
			if !headersSent {
				sendHeaders()
			}
			return written, nil
		}
		if rerr != nil {
			return written, &TransferError{Op: "read", Path: target.Canonical, HeadersSent: headersSent, Err: rerr}
		}
	}
}
