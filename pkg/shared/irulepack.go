package shared

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/scan-io-git/brakit/pkg/shared/ast"
	"github.com/scan-io-git/brakit/pkg/shared/findings"
)

// RulePack is implemented by out-of-process pattern providers.
type RulePack interface {
	Manifest() (RulePackManifest, error)
	Detect(req RulePackDetectRequest) (RulePackDetectResponse, error)
}

// RulePackManifest declares a pack the way an in-process plugin declares its patterns.
type RulePackManifest struct {
	Name     string
	Version  string
	Patterns []RulePackPattern
}

// RulePackPattern is the serialisable part of a pattern. Ids are local to the pack.
type RulePackPattern struct {
	ID             string
	Title          string
	Description    string
	Recommendation string
	Pillar         findings.Pillar
	Severity       findings.Severity
	Confidence     findings.Confidence
	Files          string   // glob over the root-relative path
	Roles          []string // roles the file must carry one of
}

// RulePackDetectRequest asks a pack to run one pattern on one file.
type RulePackDetectRequest struct {
	PatternID string      // local pattern id
	Path      string      // root-relative, slash separated
	Content   string      // file contents
	Roles     []string    // roles assigned by the classifier
	AST       ast.Summary // structural summary, empty when the file did not parse
}

type RulePackDetectResponse struct {
	Matches []findings.Match
}

type RulePackRPCClient struct{ client *rpc.Client }

func (g *RulePackRPCClient) Manifest() (RulePackManifest, error) {
	var resp RulePackManifest
	err := g.client.Call("Plugin.Manifest", new(interface{}), &resp)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

func (g *RulePackRPCClient) Detect(req RulePackDetectRequest) (RulePackDetectResponse, error) {
	var resp RulePackDetectResponse
	err := g.client.Call("Plugin.Detect", req, &resp)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

type RulePackRPCServer struct {
	Impl RulePack
}

func (s *RulePackRPCServer) Manifest(args interface{}, resp *RulePackManifest) error {
	var err error
	*resp, err = s.Impl.Manifest()
	return err
}

func (s *RulePackRPCServer) Detect(args RulePackDetectRequest, resp *RulePackDetectResponse) error {
	var err error
	*resp, err = s.Impl.Detect(args)
	return err
}

type RulePackPlugin struct {
	Impl RulePack
}

func (p *RulePackPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &RulePackRPCServer{Impl: p.Impl}, nil
}

func (RulePackPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RulePackRPCClient{client: c}, nil
}
