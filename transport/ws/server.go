package ws

import (
	"board-lab/domain"
	boarderrors "board-lab/errors"
	"board-lab/services"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler wires the three owners to their websocket endpoints and to the
// thin HTTP read/upload surface. Everything stateful lives in the owners;
// this layer only decodes frames and reports rejections back to the caller.
type Handler struct {
	log          *slog.Logger
	upgrader     websocket.Upgrader
	board        *services.WhiteboardService
	chat         *services.ChatService
	files        *services.FileService
	historyLimit int
}

func NewHandler(
	log *slog.Logger,
	board *services.WhiteboardService,
	chat *services.ChatService,
	files *services.FileService,
	historyLimit int,
) *Handler {
	return &Handler{
		log:          log,
		upgrader:     websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		board:        board,
		chat:         chat,
		files:        files,
		historyLimit: historyLimit,
	}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/whiteboard", h.handleWhiteboard)
	mux.HandleFunc("GET /ws/chat", h.handleChat)
	mux.HandleFunc("GET /ws/files", h.handleFiles)
	mux.HandleFunc("GET /api/chat/history", h.handleHistory)
	mux.HandleFunc("GET /api/files", h.handleListFiles)
	mux.HandleFunc("POST /api/files", h.handleUpload)
	mux.HandleFunc("GET /api/files/{id}", h.handleDownload)
}

// upgrade authenticates nothing by design; user identity is the opaque id
// the client presents.
func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) (*Conn, bool) {
	userID := r.URL.Query().Get("user")
	username := r.URL.Query().Get("name")
	if userID == "" {
		http.Error(w, "user query parameter required", http.StatusBadRequest)
		return nil, false
	}
	if username == "" {
		username = userID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "err", err)
		return nil, false
	}
	return NewConn(h.log, conn, userID, username), true
}

type boardCommand struct {
	Op     string                `json:"op"`
	Action *domain.DrawingAction `json:"action,omitempty"`
	Name   string                `json:"name,omitempty"`
}

func (h *Handler) handleWhiteboard(w http.ResponseWriter, r *http.Request) {
	c, ok := h.upgrade(w, r)
	if !ok {
		return
	}

	if err := h.board.Register(c.userID, c); err != nil {
		c.SendError(err.Error())
		c.Close()
		return
	}

	c.readLoop(func(raw []byte) {
		var cmd boardCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.SendError("malformed command")
			return
		}

		var err error
		switch cmd.Op {
		case "add-action":
			if cmd.Action != nil {
				cmd.Action.UserID = c.userID
			}
			err = h.board.AddAction(cmd.Action)
		case "clear":
			err = h.board.Clear(c.userID)
		case "undo":
			err = h.board.UndoLast(c.userID)
		case "save":
			err = h.board.Save(cmd.Name, c.userID)
		case "load":
			err = h.board.Load(cmd.Name, c.userID)
		default:
			err = fmt.Errorf("unknown whiteboard op %q", cmd.Op)
		}
		if err != nil {
			c.SendError(err.Error())
		}
	}, func() {
		h.board.Unregister(c.userID)
	})
}

type chatCommand struct {
	Op       string `json:"op"`
	Content  string `json:"content,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	Typing   bool   `json:"typing,omitempty"`
	Online   bool   `json:"online,omitempty"`
	Audio    bool   `json:"audio,omitempty"`
	Muted    bool   `json:"muted,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	c, ok := h.upgrade(w, r)
	if !ok {
		return
	}

	participant := domain.NewParticipant(c.userID, c.username)
	if err := h.chat.Join(participant, c); err != nil {
		c.SendError(err.Error())
		c.Close()
		return
	}

	c.readLoop(func(raw []byte) {
		var cmd chatCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.SendError("malformed command")
			return
		}

		var err error
		switch cmd.Op {
		case "send":
			err = h.chat.Send(domain.NewChatMessage(c.userID, c.username, cmd.Content))
		case "file-notice":
			err = h.chat.Send(domain.NewFileNotice(
				c.userID, c.username, cmd.FileName, cmd.FileURL, cmd.FileSize))
		case "typing":
			h.chat.NotifyTyping(c.userID, c.username, cmd.Typing)
		case "status":
			updated := domain.Participant{
				ID:           c.userID,
				Username:     c.username,
				Online:       cmd.Online,
				AudioEnabled: cmd.Audio,
				Muted:        cmd.Muted,
			}
			h.chat.UpdateStatus(c.userID, updated)
		default:
			err = fmt.Errorf("unknown chat op %q", cmd.Op)
		}
		if err != nil {
			c.SendError(err.Error())
		}
	}, func() {
		h.chat.Leave(c.userID)
	})
}

type fileCommand struct {
	Op     string            `json:"op"`
	FileID string            `json:"fileId,omitempty"`
	Chunk  *domain.FileChunk `json:"chunk,omitempty"`
}

func (h *Handler) handleFiles(w http.ResponseWriter, r *http.Request) {
	c, ok := h.upgrade(w, r)
	if !ok {
		return
	}

	if err := h.files.Register(c.userID, c); err != nil {
		c.SendError(err.Error())
		c.Close()
		return
	}

	c.readLoop(func(raw []byte) {
		var cmd fileCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.SendError("malformed command")
			return
		}

		var err error
		switch cmd.Op {
		case "chunk":
			if cmd.Chunk == nil {
				err = fmt.Errorf("chunk op without chunk payload")
				break
			}
			cmd.Chunk.UploaderID = c.userID
			if cmd.Chunk.UploaderName == "" {
				cmd.Chunk.UploaderName = c.username
			}
			err = h.files.UploadChunk(*cmd.Chunk)
		case "share":
			err = h.files.Share(cmd.FileID, c.userID)
		case "delete":
			err = h.files.Delete(cmd.FileID, c.userID)
		default:
			err = fmt.Errorf("unknown file op %q", cmd.Op)
		}
		if err != nil {
			c.SendError(err.Error())
		}
	}, func() {
		h.files.Unregister(c.userID)
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if _, err := fmt.Sscanf(q, "%d", &limit); err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, h.chat.History(limit))
}

func (h *Handler) handleListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.SharedFiles()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

// multipartOverhead leaves room for the form fields and part headers on
// top of the payload itself.
const multipartOverhead = 1 << 20

// handleUpload takes a whole file in one multipart request. Rejections
// (size, type) map to 4xx; the owner decides, this layer only translates.
// The body is capped before parsing so an oversized upload is cut off at
// the wire instead of being buffered just to be rejected.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxFileSize()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, boarderrors.ErrFileTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "malformed multipart request", http.StatusBadRequest)
		return
	}

	uploaderID := r.FormValue("user")
	if uploaderID == "" {
		http.Error(w, "user form value required", http.StatusBadRequest)
		return
	}
	uploaderName := r.FormValue("name")
	if uploaderName == "" {
		uploaderName = uploaderID
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	record := domain.FileRecord{
		FileName:     header.Filename,
		UploaderID:   uploaderID,
		UploaderName: uploaderName,
	}
	fileID, err := h.files.Upload(record, data)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, boarderrors.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, map[string]string{"fileId": fileID})
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	record, data, err := h.files.Download(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.FileName))
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
