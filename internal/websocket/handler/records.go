// internal/websocket/handler/records.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	wstypes "fieldmapper-service/internal/domain/websocket"
	"fieldmapper-service/internal/store"
	ws "fieldmapper-service/internal/websocket"

	"go.uber.org/zap"
)

// RecordHandler serves live record watches over the socket. A client watches
// a path relative to its own users/{uid} subtree and gets a snapshot
// immediately plus one on every change, the way the map and dashboard pages
// keep themselves current.
type RecordHandler struct {
	records store.Store
	logger  *zap.Logger
}

func NewRecordHandler(records store.Store, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		records: records,
		logger:  logger,
	}
}

// SupportedEvents returns events this handler supports
func (h *RecordHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeRecordWatch,
		wstypes.EventTypeRecordUnwatch,
	}
}

// HandleMessage processes record watch messages
func (h *RecordHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeRecordWatch:
		return h.handleWatch(ctx, client, msg)

	case wstypes.EventTypeRecordUnwatch:
		return h.handleUnwatch(ctx, client, msg)

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

// resolvePath scopes a client-supplied relative path to the user's subtree.
// "polygons" becomes users/{uid}/polygons, "" the user record itself.
func resolvePath(uid, rel string) (string, error) {
	rel = strings.Trim(rel, "/")
	abs := "users/" + uid
	if rel != "" {
		abs = abs + "/" + rel
	}
	if err := store.ValidatePath(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (h *RecordHandler) handleWatch(_ context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.WatchRequest
	if err := mapToStruct(msg.Data, &req); err != nil {
		client.SendError("invalid_request", "Invalid watch request", err.Error())
		return nil
	}

	path, err := resolvePath(client.UID(), req.Path)
	if err != nil {
		client.SendError("invalid_path", "Invalid record path", err.Error())
		return nil
	}

	snapshots, cancel := h.records.Subscribe(path)
	if !client.AddWatch(path, cancel) {
		// Already watching, drop the duplicate subscription
		cancel()
		return nil
	}

	client.Subscribe(wstypes.ChannelRecords)

	go func() {
		for {
			select {
			case <-client.Done():
				return
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				client.SendMessage(wstypes.NewMessage(wstypes.EventTypeRecordSnapshot, wstypes.RecordSnapshotData{
					Path:   snap.Path,
					Exists: snap.Exists(),
					Value:  snap.Raw(),
				}))
			}
		}
	}()

	h.logger.Debug("record watch opened",
		zap.String("uid", client.UID()), zap.String("path", path))

	return nil
}

func (h *RecordHandler) handleUnwatch(_ context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.WatchRequest
	if err := mapToStruct(msg.Data, &req); err != nil {
		client.SendError("invalid_request", "Invalid unwatch request", err.Error())
		return nil
	}

	path, err := resolvePath(client.UID(), req.Path)
	if err != nil {
		client.SendError("invalid_path", "Invalid record path", err.Error())
		return nil
	}

	if !client.RemoveWatch(path) {
		client.SendError("not_watching", "No watch open for path", path)
		return nil
	}

	h.logger.Debug("record watch closed",
		zap.String("uid", client.UID()), zap.String("path", path))

	return nil
}

// Helper function to convert interface{} to struct
func mapToStruct(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
