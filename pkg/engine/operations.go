package engine

import (
	"github.com/dd0wney/cluso-topology/pkg/topology"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

// CreateNetwork adds a network. Malformed input reports GENERAL_ERROR
// with MalformedNetworkMessage and leaves the store unchanged.
func (e *Engine) CreateNetwork(req validation.NetworkRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	version, verr := topology.ParseVersion(req.Version)
	prefix, perr := req.SubnetMask.Int()
	if verr != nil || perr != nil {
		return Result{
			Status:    StatusGeneralError,
			Message:   MalformedNetworkMessage,
			ErrorType: "ValidationError",
			Topology:  e.snapshot(),
		}
	}

	return e.mutate(mutation{
		op:         "createNetwork",
		invalidMsg: MalformedNetworkMessage,
		apply: func(res *Result) error {
			n, err := e.store.CreateNetwork(req.Address, prefix, version)
			res.ElementID = n.ID
			return err
		},
	})
}

// CreateHost adds a host to a network.
func (e *Engine) CreateHost(req validation.HostRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	return e.mutate(mutation{
		op: "createHost",
		apply: func(res *Result) error {
			h, err := e.store.CreateHost(req.Name, req.Network, req.Address)
			res.ElementID = h.ID
			return err
		},
	})
}

// CreateLink connects two hosts.
func (e *Engine) CreateLink(req validation.LinkRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	return e.mutate(mutation{
		op: "createLink",
		apply: func(res *Result) error {
			l, err := e.store.CreateLink(req.Source, req.Target)
			res.ElementID = l.ID
			return err
		},
	})
}

// RemoveElement removes an element and everything depending on it.
func (e *Engine) RemoveElement(req validation.IDRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	return e.mutate(mutation{
		op: "removeElement",
		apply: func(res *Result) error {
			removed, err := e.store.RemoveElement(req.ID)
			res.Removed = removed
			return err
		},
	})
}

// NewTopology discards the current topology and starts an empty one under
// a fresh id.
func (e *Engine) NewTopology() Result {
	return e.mutate(mutation{
		op: "newTopology",
		apply: func(*Result) error {
			e.store.Reset(e.newID())
			return nil
		},
	})
}

// Topology returns the current snapshot.
func (e *Engine) Topology() Result {
	return Result{Status: StatusSuccess, Topology: e.snapshot()}
}

// Graph returns the current semantic graph as N-Triples.
func (e *Engine) Graph() ([]byte, error) {
	return e.sync.Model().Current().Bytes()
}
