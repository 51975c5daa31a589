package imap

import (
	"sort"
	"strings"
)

// FolderInfo is the subset of a LIST response needed to build the catalog.
type FolderInfo struct {
	Name      string
	Delimiter string
}

// FolderNode is one node in the mailbox folder hierarchy.
type FolderNode struct {
	Name      string // full path as reported by the server
	Delimiter string
	Children  []*FolderNode
}

// defaultSyncFolders is the fixed list of folders a sync is interested in.
// The effective folder set for an account is this list intersected with the
// folders the server actually reports.
var defaultSyncFolders = []string{"INBOX", "Sent", "Drafts", "Spam"}

// BuildFolderTree arranges LIST responses into a hierarchy keyed on each
// folder's delimiter. Parents missing from the listing are synthesized so
// that orphans like "a/b/c" without "a/b" still find a place.
func BuildFolderTree(infos []FolderInfo) []*FolderNode {
	nodes := make(map[string]*FolderNode, len(infos))
	var roots []*FolderNode

	var ensure func(name, delimiter string) *FolderNode
	ensure = func(name, delimiter string) *FolderNode {
		if node, exists := nodes[name]; exists {
			return node
		}
		node := &FolderNode{Name: name, Delimiter: delimiter}
		nodes[name] = node

		if delimiter != "" {
			if idx := strings.LastIndex(name, delimiter); idx > 0 {
				parent := ensure(name[:idx], delimiter)
				parent.Children = append(parent.Children, node)
				return node
			}
		}
		roots = append(roots, node)
		return node
	}

	for _, info := range infos {
		ensure(info.Name, info.Delimiter)
	}

	sortTree(roots)
	return roots
}

func sortTree(nodes []*FolderNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
	for _, node := range nodes {
		sortTree(node.Children)
	}
}

// Flatten walks the tree depth-first and returns every folder's full path
// in stable order.
func Flatten(nodes []*FolderNode) []string {
	var paths []string
	var walk func(nodes []*FolderNode)
	walk = func(nodes []*FolderNode) {
		for _, node := range nodes {
			paths = append(paths, node.Name)
			walk(node.Children)
		}
	}
	walk(nodes)
	return paths
}

// SelectSyncFolders intersects the interest list with the server catalog.
// A catalog folder matches when its full path or its final path segment
// equals an interest folder, compared case-insensitively.
func SelectSyncFolders(catalog []string) []string {
	var selected []string
	for _, interest := range defaultSyncFolders {
		for _, folder := range catalog {
			if folderMatches(folder, interest) {
				selected = append(selected, folder)
				break
			}
		}
	}
	return selected
}

func folderMatches(folder, interest string) bool {
	if strings.EqualFold(folder, interest) {
		return true
	}
	for _, delimiter := range []string{"/", "."} {
		if idx := strings.LastIndex(folder, delimiter); idx >= 0 {
			if strings.EqualFold(folder[idx+1:], interest) {
				return true
			}
		}
	}
	return false
}
