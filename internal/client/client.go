// Package client talks to a running daemon over its Unix socket.
package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/paperdex/paperdex/internal/models"
	"github.com/paperdex/paperdex/internal/rename"
	servermodels "github.com/paperdex/paperdex/internal/server/models"
	"github.com/paperdex/paperdex/internal/smartgroup"
)

type Client struct {
	socketPath string
}

func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) sendRequest(method string, params map[string]any) (json.RawMessage, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("service not running")
	}
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	if scanner.Scan() {
		// server info line, discarded
	}

	req := servermodels.Request{
		ID:     1,
		Method: method,
		Params: params,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, err
	}

	if !scanner.Scan() {
		return nil, fmt.Errorf("no response from server")
	}

	var resp struct {
		ID     int             `json:"id,omitempty"`
		Result json.RawMessage `json:"result,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Result, nil
}

func call[T any](c *Client, method string, params map[string]any) (T, error) {
	var out T
	result, err := c.sendRequest(method, params)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(result, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) Ping() error {
	_, err := c.sendRequest("ping", nil)
	return err
}

func (c *Client) Search(query string, limit, offset int, folderID string) (models.SearchResponse, error) {
	params := map[string]any{
		"query":  query,
		"limit":  limit,
		"offset": offset,
	}
	if folderID != "" {
		params["folderId"] = folderID
	}
	return call[models.SearchResponse](c, "search.fulltext", params)
}

func (c *Client) IndexPaper(paperID string) (models.IndexingStatus, error) {
	return call[models.IndexingStatus](c, "index.paper", map[string]any{"paperId": paperID})
}

func (c *Client) IndexAll() ([]models.IndexingStatus, error) {
	return call[[]models.IndexingStatus](c, "index.all", nil)
}

func (c *Client) IndexStatus(paperID string) (models.IndexingStatus, error) {
	return call[models.IndexingStatus](c, "index.status", map[string]any{"paperId": paperID})
}

func (c *Client) CreatePaper(params map[string]any) (models.Paper, error) {
	return call[models.Paper](c, "paper.create", params)
}

func (c *Client) GetPaper(paperID string) (models.Paper, error) {
	return call[models.Paper](c, "paper.get", map[string]any{"paperId": paperID})
}

func (c *Client) ListPapers(folderID string) ([]models.Paper, error) {
	params := map[string]any{}
	if folderID != "" {
		params["folderId"] = folderID
	}
	return call[[]models.Paper](c, "paper.list", params)
}

func (c *Client) UpdatePaper(paperID string, fields map[string]any) (models.Paper, error) {
	params := map[string]any{"paperId": paperID}
	for k, v := range fields {
		params[k] = v
	}
	return call[models.Paper](c, "paper.update", params)
}

func (c *Client) DeletePaper(paperID string) error {
	_, err := c.sendRequest("paper.delete", map[string]any{"paperId": paperID})
	return err
}

func (c *Client) CreateGroup(name string, criteria []smartgroup.Criterion, matchMode, icon, color string) (smartgroup.SmartGroup, error) {
	return call[smartgroup.SmartGroup](c, "group.create", map[string]any{
		"name":      name,
		"criteria":  criteria,
		"matchMode": matchMode,
		"icon":      icon,
		"color":     color,
	})
}

func (c *Client) ListGroups() ([]smartgroup.SmartGroup, error) {
	return call[[]smartgroup.SmartGroup](c, "group.list", nil)
}

func (c *Client) PredefinedGroups() ([]smartgroup.SmartGroup, error) {
	return call[[]smartgroup.SmartGroup](c, "group.predefined", nil)
}

func (c *Client) DeleteGroup(groupID string) error {
	_, err := c.sendRequest("group.delete", map[string]any{"groupId": groupID})
	return err
}

func (c *Client) GroupPapers(groupID, folderID string) ([]models.Paper, error) {
	params := map[string]any{"groupId": groupID}
	if folderID != "" {
		params["folderId"] = folderID
	}
	return call[[]models.Paper](c, "group.papers", params)
}

func (c *Client) WatchStatus() (string, error) {
	resp, err := call[map[string]string](c, "watch.status", nil)
	if err != nil {
		return "", err
	}
	return resp["status"], nil
}

func (c *Client) WatchStart() (string, error) {
	resp, err := call[map[string]string](c, "watch.start", nil)
	if err != nil {
		return "", err
	}
	return resp["status"], nil
}

func (c *Client) WatchStop() (string, error) {
	resp, err := call[map[string]string](c, "watch.stop", nil)
	if err != nil {
		return "", err
	}
	return resp["status"], nil
}

func (c *Client) WatchScan(watchFolderID string) (map[string]any, error) {
	params := map[string]any{}
	if watchFolderID != "" {
		params["watchFolderId"] = watchFolderID
	}
	return call[map[string]any](c, "watch.scan", params)
}

func (c *Client) AddWatchFolder(path, targetFolderID string, autoRename bool) (models.WatchFolder, error) {
	return call[models.WatchFolder](c, "watchfolder.add", map[string]any{
		"path":           path,
		"targetFolderId": targetFolderID,
		"autoRename":     autoRename,
	})
}

func (c *Client) ListWatchFolders() ([]models.WatchFolder, error) {
	return call[[]models.WatchFolder](c, "watchfolder.list", nil)
}

func (c *Client) RemoveWatchFolder(id string) error {
	_, err := c.sendRequest("watchfolder.remove", map[string]any{"watchFolderId": id})
	return err
}

func (c *Client) ToggleWatchFolder(id string) (models.WatchFolder, error) {
	return call[models.WatchFolder](c, "watchfolder.toggle", map[string]any{"watchFolderId": id})
}

func (c *Client) RenamePreview(paperID string) (rename.Result, error) {
	return call[rename.Result](c, "rename.preview", map[string]any{"paperId": paperID})
}

func (c *Client) RenameApply(paperID string) (rename.Result, error) {
	return call[rename.Result](c, "rename.apply", map[string]any{"paperId": paperID})
}

func (c *Client) RenameBatch(paperIDs []string) ([]rename.Result, error) {
	return call[[]rename.Result](c, "rename.batch", map[string]any{"paperIds": paperIDs})
}

// StreamEvents subscribes to the daemon's event stream and invokes handler
// for each event until the connection drops or handler returns an error.
func (c *Client) StreamEvents(handler func(name string, payload json.RawMessage) error) error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("service not running")
	}
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	if scanner.Scan() {
		// server info line, discarded
	}

	req := servermodels.Request{ID: 1, Method: "events.subscribe"}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return err
	}

	if !scanner.Scan() {
		return fmt.Errorf("no response from server")
	}
	var ack struct {
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &ack); err != nil {
		return err
	}
	if ack.Error != "" {
		return fmt.Errorf("%s", ack.Error)
	}

	for scanner.Scan() {
		var line struct {
			Result *struct {
				Name    string          `json:"Name"`
				Payload json.RawMessage `json:"Payload"`
			} `json:"result,omitempty"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return err
		}
		if line.Result == nil {
			continue
		}
		if err := handler(line.Result.Name, line.Result.Payload); err != nil {
			return err
		}
	}
	return scanner.Err()
}
