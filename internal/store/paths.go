package store

import (
	"fmt"
	"strings"
)

const (
	CollectionWorkspaces = "workspaces"
	CollectionUsers      = "users"
)

func WorkspacePath(workspaceID string) string {
	return CollectionWorkspaces + "/" + workspaceID
}

func PagesCollection(workspaceID string) string {
	return WorkspacePath(workspaceID) + "/pages"
}

func PagePath(workspaceID, pageID string) string {
	return PagesCollection(workspaceID) + "/" + pageID
}

func BlocksCollection(workspaceID, pageID string) string {
	return PagePath(workspaceID, pageID) + "/blocks"
}

func BlockPath(workspaceID, pageID, blockID string) string {
	return BlocksCollection(workspaceID, pageID) + "/" + blockID
}

func UserPath(userID string) string {
	return CollectionUsers + "/" + userID
}

// SplitPath splits a document path into its collection and id. Document
// paths alternate collection and id segments, so they always have an even
// number of non-empty segments.
func SplitPath(path string) (collection, id string, err error) {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", "", fmt.Errorf("invalid document path %q", path)
	}
	for _, s := range segments {
		if s == "" {
			return "", "", fmt.Errorf("invalid document path %q", path)
		}
	}
	i := strings.LastIndex(path, "/")
	return path[:i], path[i+1:], nil
}

// parentSegment returns the id segment that precedes the named collection in
// path, e.g. parentSegment("workspaces/w1/pages/p1", "pages") is "w1".
func parentSegment(path, collection string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i > 0; i-- {
		if segments[i] == collection && i%2 == 0 {
			return segments[i-1]
		}
	}
	return ""
}
