package mcp

import (
	"context"

	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
)

// toolWorktreeInfo reports how a path relates to its repository. The probe
// runs on every call since worktrees can be added or removed at any time.
func (s *MCPServer) toolWorktreeInfo(_ context.Context, params map[string]interface{}) (*envelope.Response, error) {
	path := s.root
	if v, ok := params["path"]; ok {
		p, ok := v.(string)
		if !ok {
			return nil, auraerrors.NewInvalidArgumentError("path", "expected string")
		}
		if p != "" {
			path = s.abs(p)
		}
	}
	info, err := s.resolver.Resolve(path)
	if err != nil {
		return nil, auraerrors.NewOperationError("worktree probe", err)
	}
	return envelope.Operational(map[string]interface{}{
		"path":         path,
		"isWorktree":   info.IsWorktree,
		"worktreePath": info.WorktreePath,
		"mainRepoPath": info.MainRepoPath,
	}), nil
}

type operationInfo struct {
	Name      string   `json:"name"`
	Languages []string `json:"languages,omitempty"`
}

func (s *MCPServer) toolListOperations(_ context.Context, _ map[string]interface{}) (*envelope.Response, error) {
	tools := make(map[string][]operationInfo, len(s.catalog))
	for tool, ops := range s.catalog.ListAll() {
		r := s.routers[tool]
		infos := make([]operationInfo, len(ops))
		for i, op := range ops {
			infos[i] = operationInfo{Name: op, Languages: r.Languages(op)}
		}
		tools[tool] = infos
	}
	return envelope.Operational(map[string]interface{}{"tools": tools}), nil
}
