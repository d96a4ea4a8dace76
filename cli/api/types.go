package api

import (
	"strings"
	"time"
)

type FlowStatus string

const (
	FlowStatusEnabled  FlowStatus = "ENABLED"
	FlowStatusDisabled FlowStatus = "DISABLED"
)

// UncategorizedFolder selects flows that belong to no folder.
const UncategorizedFolder = "NULL"

type Flow struct {
	ID        string      `json:"id"`
	ProjectID string      `json:"projectId"`
	FolderID  string      `json:"folderId,omitempty"`
	Status    FlowStatus  `json:"status"`
	Created   time.Time   `json:"created"`
	Updated   time.Time   `json:"updated"`
	Version   FlowVersion `json:"version"`
}

type FlowVersion struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"displayName"`
	Valid       bool   `json:"valid"`
	Trigger     *Step  `json:"trigger,omitempty"`
}

// Step is one node of a flow's trigger chain.
type Step struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	DisplayName string       `json:"displayName"`
	Settings    StepSettings `json:"settings"`
	NextAction  *Step        `json:"nextAction,omitempty"`
}

type StepSettings struct {
	PieceName string `json:"pieceName,omitempty"`
}

// PieceNames walks the chain and returns the distinct piece names in order.
func (v FlowVersion) PieceNames() []string {
	var out []string
	seen := map[string]struct{}{}
	for step := v.Trigger; step != nil; step = step.NextAction {
		name := step.Settings.PieceName
		if name == "" {
			name = step.Type
		}
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

type Folder struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	DisplayName   string    `json:"displayName"`
	NumberOfFlows int       `json:"numberOfFlows"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
}

type ConnectionStatus string

const (
	ConnectionActive  ConnectionStatus = "ACTIVE"
	ConnectionError   ConnectionStatus = "ERROR"
	ConnectionMissing ConnectionStatus = "MISSING"
)

type AppConnection struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	PieceName string           `json:"pieceName"`
	ProjectID string           `json:"projectId"`
	Type      string           `json:"type"`
	Status    ConnectionStatus `json:"status"`
	Created   time.Time        `json:"created"`
	Updated   time.Time        `json:"updated"`
}

type PieceAuth struct {
	Type        string `json:"type"`
	DisplayName string `json:"displayName"`
	Required    bool   `json:"required"`
}

type PieceSummary struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Description string     `json:"description,omitempty"`
	LogoURL     string     `json:"logoUrl,omitempty"`
	Version     string     `json:"version"`
	Auth        *PieceAuth `json:"auth,omitempty"`
}

func (p PieceSummary) HasAuth() bool {
	return p.Auth != nil
}

// ShortName strips the npm scope and the "piece-" prefix.
func ShortName(pieceName string) string {
	name := pieceName
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimPrefix(name, "piece-")
}

// SeekPage is the platform's cursor page envelope.
type SeekPage[T any] struct {
	Data     []T     `json:"data"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

func (p SeekPage[T]) NextCursor() string {
	if p.Next == nil {
		return ""
	}
	return *p.Next
}

type PackageType string

const (
	PackageRegistry PackageType = "REGISTRY"
	PackageArchive  PackageType = "ARCHIVE"
)

type PieceScope string

const (
	ScopeProject  PieceScope = "PROJECT"
	ScopePlatform PieceScope = "PLATFORM"
)

type InstallPieceRequest struct {
	PieceName    string
	PieceVersion string
	PackageType  PackageType
	Scope        PieceScope
	ArchivePath  string
}

type UpsertConnectionRequest struct {
	Name      string         `json:"name"`
	PieceName string         `json:"pieceName"`
	ProjectID string         `json:"projectId"`
	Type      string         `json:"type"`
	Value     map[string]any `json:"value"`
}

// FlowOperationType names the update operations accepted by POST /flows/{id}.
type FlowOperationType string

const (
	OpChangeName   FlowOperationType = "CHANGE_NAME"
	OpChangeStatus FlowOperationType = "CHANGE_STATUS"
	OpChangeFolder FlowOperationType = "CHANGE_FOLDER"
	OpImportFlow   FlowOperationType = "IMPORT_FLOW"
)

type FlowOperation struct {
	Type    FlowOperationType `json:"type"`
	Request map[string]any    `json:"request"`
}

const FlagPrivatePiecesEnabled = "PRIVATE_PIECES_ENABLED"
