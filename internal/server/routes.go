package server

import (
	"context"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/transport/http"

	"StackScout/internal/service"
)

const (
	OperationStartResearch      = "/stackscout.v1.Research/StartResearch"
	OperationGetResearch        = "/stackscout.v1.Research/GetResearch"
	OperationDetectTechnologies = "/stackscout.v1.Research/DetectTechnologies"
	OperationGetTechnology      = "/stackscout.v1.Research/GetTechnology"
	OperationReviewTechnology   = "/stackscout.v1.Research/ReviewTechnology"
	OperationGetArtifact        = "/stackscout.v1.Research/GetArtifact"
	OperationListProviders      = "/stackscout.v1.Research/ListProviders"
)

// RegisterResearchHTTPServer mounts the research API on s.
func RegisterResearchHTTPServer(s *http.Server, svc *service.ResearchService) {
	r := s.Route("/")
	r.POST("/v1/research", startResearchHandler(svc))
	r.GET("/v1/research/{id}", getResearchHandler(svc))
	r.POST("/v1/technologies/detect", detectTechnologiesHandler(svc))
	r.GET("/v1/technologies/{name}", getTechnologyHandler(svc))
	r.POST("/v1/technologies/{name}/review", reviewTechnologyHandler(svc))
	r.GET("/v1/artifacts/{name}", getArtifactHandler(svc))
	r.GET("/v1/providers", listProvidersHandler(svc))
}

func startResearchHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.StartResearchRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationStartResearch)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.StartResearch(ctx, req.(*service.StartResearchRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*service.StartResearchReply)
		code := nethttp.StatusAccepted
		if in.Wait {
			code = nethttp.StatusOK
		}
		return ctx.Result(code, reply)
	}
}

func getResearchHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := service.GetResearchRequest{ID: ctx.Vars().Get("id")}
		http.SetOperation(ctx, OperationGetResearch)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.GetResearch(ctx, req.(*service.GetResearchRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out.(*service.SessionReport))
	}
}

func detectTechnologiesHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.DetectRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, OperationDetectTechnologies)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.DetectTechnologies(ctx, req.(*service.DetectRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out.(*service.DetectReply))
	}
}

func getTechnologyHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.GetTechnologyRequest
		if err := ctx.BindQuery(&in); err != nil {
			return err
		}
		in.Name = ctx.Vars().Get("name")
		http.SetOperation(ctx, OperationGetTechnology)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.GetTechnology(ctx, req.(*service.GetTechnologyRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out.(*service.TechnologyReply))
	}
}

func reviewTechnologyHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.ReviewRequest
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		in.Name = ctx.Vars().Get("name")
		http.SetOperation(ctx, OperationReviewTechnology)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.ReviewTechnology(ctx, req.(*service.ReviewRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out.(*service.ReviewReply))
	}
}

// getArtifactHandler answers JSON by default and the raw markdown when
// the client asks for text/markdown.
func getArtifactHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		in := service.GetArtifactRequest{Name: ctx.Vars().Get("name")}
		http.SetOperation(ctx, OperationGetArtifact)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.GetArtifact(ctx, req.(*service.GetArtifactRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		reply := out.(*service.ArtifactReply)
		if ctx.Header().Get("Accept") == "text/markdown" {
			ctx.Response().Header().Set("X-Artifact-Version", reply.Version)
			return ctx.Blob(nethttp.StatusOK, "text/markdown; charset=utf-8", []byte(reply.Content))
		}
		return ctx.Result(nethttp.StatusOK, reply)
	}
}

func listProvidersHandler(svc *service.ResearchService) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		var in service.ListProvidersRequest
		http.SetOperation(ctx, OperationListProviders)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return svc.ListProviders(ctx, req.(*service.ListProvidersRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(nethttp.StatusOK, out.(*service.ProvidersReply))
	}
}
