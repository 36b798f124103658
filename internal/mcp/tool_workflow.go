package mcp

import (
	"context"

	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/operations"
	"aura/internal/workflow"
)

type workflowCreateArgs struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Steps       []string `json:"steps" validate:"dive,required"`
}

type workflowIDArgs struct {
	WorkflowID string `json:"workflowId" validate:"required"`
}

type workflowListArgs struct {
	Status string `json:"status" validate:"omitempty,oneof=pending in_progress completed failed skipped"`
	Limit  int    `json:"limit" validate:"min=0"`
}

type workflowAddStepArgs struct {
	WorkflowID  string `json:"workflowId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

type workflowUpdateStepArgs struct {
	WorkflowID string `json:"workflowId" validate:"required"`
	StepID     string `json:"stepId" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=pending in_progress completed failed skipped"`
	Result     string `json:"result"`
}

type workflowIssueArgs struct {
	IssueRef string `json:"issueRef" validate:"required"`
}

func (s *MCPServer) workflowRouter() *operations.Router {
	return operations.NewRouter("workflow", s.logger).
		Handle("create", operations.Typed(s.workflowCreate)).
		Handle("get", operations.Typed(s.workflowGet)).
		Handle("list", operations.Typed(s.workflowList)).
		Handle("add_step", operations.Typed(s.workflowAddStep)).
		Handle("update_step", operations.Typed(s.workflowUpdateStep)).
		Handle("from_issue", operations.Typed(s.workflowFromIssue))
}

func (s *MCPServer) workflows() (*workflow.Service, error) {
	if s.opts.Workflows == nil {
		return nil, auraerrors.NewBackendUnavailableError("workflow store", "check storage.path in .aura/config.json")
	}
	return s.opts.Workflows, nil
}

func workflowResponse(data interface{}, err error) (*envelope.Response, error) {
	if err != nil {
		return nil, err
	}
	return envelope.Operational(data), nil
}

func (s *MCPServer) workflowCreate(ctx context.Context, _ operations.Call, args *workflowCreateArgs) (*envelope.Response, error) {
	svc, err := s.workflows()
	if err != nil {
		return nil, err
	}
	return workflowResponse(svc.Create(ctx, args.Title, args.Description, args.Steps))
}

func (s *MCPServer) workflowGet(ctx context.Context, _ operations.Call, args *workflowIDArgs) (*envelope.Response, error) {
	svc, err := s.workflows()
	if err != nil {
		return nil, err
	}
	return workflowResponse(svc.Get(ctx, args.WorkflowID))
}

func (s *MCPServer) workflowList(ctx context.Context, _ operations.Call, args *workflowListArgs) (*envelope.Response, error) {
	svc, err := s.workflows()
	if err != nil {
		return nil, err
	}
	wfs, err := svc.List(ctx, workflow.ListFilter{Status: workflow.Status(args.Status), Limit: args.Limit})
	if err != nil {
		return nil, err
	}
	if wfs == nil {
		wfs = []*workflow.Workflow{}
	}
	return envelope.Operational(map[string]interface{}{"workflows": wfs, "count": len(wfs)}), nil
}

func (s *MCPServer) workflowAddStep(ctx context.Context, _ operations.Call, args *workflowAddStepArgs) (*envelope.Response, error) {
	svc, err := s.workflows()
	if err != nil {
		return nil, err
	}
	return workflowResponse(svc.AddStep(ctx, args.WorkflowID, args.Title, args.Description))
}

func (s *MCPServer) workflowUpdateStep(ctx context.Context, _ operations.Call, args *workflowUpdateStepArgs) (*envelope.Response, error) {
	svc, err := s.workflows()
	if err != nil {
		return nil, err
	}
	return workflowResponse(svc.UpdateStep(ctx, args.WorkflowID, args.StepID, workflow.Status(args.Status), args.Result))
}

func (s *MCPServer) workflowFromIssue(ctx context.Context, _ operations.Call, args *workflowIssueArgs) (*envelope.Response, error) {
	svc, err := s.workflows()
	if err != nil {
		return nil, err
	}
	return workflowResponse(svc.FromIssue(ctx, args.IssueRef))
}
