package grpc

import (
	"context"

	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func validID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid %s", field)
	}
	return nil
}

func (s *GRPCServer) Publish(ctx context.Context, req *PublishRequest) (*PublishResponse, error) {
	actorID, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	in := services.PublishInput{
		Slug:            req.Slug,
		DisplayName:     req.DisplayName,
		Version:         req.Version,
		Changelog:       req.Changelog,
		ChangelogSource: models.ChangelogSource(req.ChangelogSource),
		Tags:            req.Tags,
		Embedding:       req.Embedding,
	}
	if req.ForkOf != nil {
		in.ForkOf = &services.ForkRef{Slug: req.ForkOf.Slug, Version: req.ForkOf.Version}
	}
	if req.Parsed != nil {
		in.Parsed = *req.Parsed
	}
	for _, f := range req.Files {
		in.Files = append(in.Files, models.File{
			Path:        f.Path,
			Size:        f.Size,
			StorageRef:  f.StorageRef,
			SHA256:      f.SHA256,
			ContentType: f.ContentType,
		})
	}

	res, err := s.publish.Publish(ctx, actorID, in)
	if err != nil {
		return nil, s.fail(ctx, "Publish", err)
	}

	return &PublishResponse{PackageID: res.PackageID, VersionID: res.VersionID, ProjectionID: res.ProjectionID}, nil
}

func (s *GRPCServer) UpdateTags(ctx context.Context, req *UpdateTagsRequest) (*UpdateTagsResponse, error) {
	actorID, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validID("packageId", req.PackageID); err != nil {
		return nil, err
	}

	updates := make([]services.TagUpdate, 0, len(req.Tags))
	for _, t := range req.Tags {
		updates = append(updates, services.TagUpdate{Tag: t.Tag, VersionID: t.VersionID})
	}

	tags, err := s.tags.UpdateTags(ctx, actorID, req.PackageID, updates)
	if err != nil {
		return nil, s.fail(ctx, "UpdateTags", err)
	}

	return &UpdateTagsResponse{Tags: tags}, nil
}

func (s *GRPCServer) SetApproved(ctx context.Context, req *SetApprovedRequest) (*Empty, error) {
	actorID, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validID("packageId", req.PackageID); err != nil {
		return nil, err
	}

	if err := s.moderation.SetApproved(ctx, actorID, req.PackageID, req.Approved); err != nil {
		return nil, s.fail(ctx, "SetApproved", err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) SetSoftDeleted(ctx context.Context, req *SetSoftDeletedRequest) (*Empty, error) {
	actorID, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validID("packageId", req.PackageID); err != nil {
		return nil, err
	}

	if err := s.moderation.SetSoftDeleted(ctx, actorID, req.PackageID, req.Deleted); err != nil {
		return nil, s.fail(ctx, "SetSoftDeleted", err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) ResolveVersionByHash(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error) {
	res, err := s.resolve.ResolveVersionByHash(ctx, req.Slug, req.Hash)
	if err != nil {
		return nil, s.fail(ctx, "ResolveVersionByHash", err)
	}
	return &ResolveResponse{Match: res.Match, LatestVersion: res.LatestVersion}, nil
}

func (s *GRPCServer) Restore(ctx context.Context, req *RestoreRequest) (*RestoreResponse, error) {
	actorID, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validID("ownerUserId", req.OwnerUserID); err != nil {
		return nil, err
	}

	in := services.RestoreInput{
		OwnerUserID: req.OwnerUserID,
		Slug:        req.Slug,
		DisplayName: req.DisplayName,
		Version:     req.Version,
		Parsed:      req.Parsed,
		Force:       req.Force,
	}
	for _, f := range req.Files {
		in.Files = append(in.Files, services.RestoreFile{Path: f.Path, Data: f.Data, ContentType: f.ContentType})
	}

	res, err := s.restore.Restore(ctx, actorID, in)
	if err != nil {
		return nil, s.fail(ctx, "Restore", err)
	}

	out := &RestoreResponse{Slug: res.Slug, Status: res.Status, EvictedPackageID: res.EvictedPackageID}
	if res.Publish != nil {
		out.PackageID = res.Publish.PackageID
		out.VersionID = res.Publish.VersionID
	}
	return out, nil
}
