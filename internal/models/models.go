package models

import "time"

type NodeType int16

const (
	NodeTypeDir  NodeType = 0
	NodeTypeFile NodeType = 1
)

const (
	RootIno int64 = 1

	S_IFDIR = 0o040000 // Directory
	S_IFREG = 0o100000 // Regular file

	RootPerm = 0o755
	FilePerm = 0o644
)

type NodeMeta struct {
	Ino       int64     `json:"ino"`
	ParentIno int64     `json:"parent_ino"`
	Type      NodeType  `json:"type"`
	Mode      uint32    `json:"mode"` // umode_t, type bits included
	Nlink     uint32    `json:"nlink"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
}

func (m *NodeMeta) IsDir() bool {
	return m.Type == NodeTypeDir
}

type Dirent struct {
	Name string   `json:"name"`
	Ino  int64    `json:"ino"`
	Type NodeType `json:"type"`
}
