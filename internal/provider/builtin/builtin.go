// Package builtin wires every concrete provider adapter into the ordering
// spec.md §4.2 requires: specific adapters (Zenodo, PANGAEA, named
// Dataverse/CKAN/CSW instances) before their generic family base adapters,
// and the GitHub catch-all last. A Senckenberg URL must route to the
// Senckenberg CKAN instance, not the generic CKAN adapter that would also
// match it, so order here is load-bearing, not cosmetic.
package builtin

import (
	"github.com/btraven00/geoextent-core/internal/provider"
	"github.com/btraven00/geoextent-core/internal/provider/ckan"
	"github.com/btraven00/geoextent-core/internal/provider/csw"
	"github.com/btraven00/geoextent-core/internal/provider/dataverse"
	"github.com/btraven00/geoextent-core/internal/provider/deims"
	"github.com/btraven00/geoextent-core/internal/provider/dryad"
	"github.com/btraven00/geoextent-core/internal/provider/dspace"
	"github.com/btraven00/geoextent-core/internal/provider/figshare"
	"github.com/btraven00/geoextent-core/internal/provider/github"
	"github.com/btraven00/geoextent-core/internal/provider/invenio"
	"github.com/btraven00/geoextent-core/internal/provider/osf"
	"github.com/btraven00/geoextent-core/internal/provider/pangaea"
	"github.com/btraven00/geoextent-core/internal/provider/stac"
)

// Adapters returns the full, ordered set of adapters this distribution
// ships. Callers pass this slice straight to registry.New.
func Adapters() []provider.Adapter {
	var list []provider.Adapter

	// Repository-specific adapters with their own native APIs (spec.md
	// §5.1 "Repository-specific").
	list = append(list,
		invenio.New("Zenodo", "https://zenodo.org/api", "10.5281"),
		invenio.New("CaltechDATA", "https://data.caltech.edu/api", "10.22002"),
		invenio.New("B2SHARE", "https://b2share.eudat.eu/api", ""),
		invenio.New("GEO Knowledge Hub", "https://gkhub.earthobservations.org/api", ""),
		figshare.New(),
		dryad.New(),
		pangaea.New(),
		osf.New(),
		deims.New(),
	)

	// Named instances of the CSW 2.0.2 family (metadata-only; spec.md
	// §5.1).
	list = append(list,
		csw.New("BGR", "https://www.bgr.bund.de/geonetwork/srv/eng/csw", csw.WithHosts("bgr.bund.de")),
		csw.New("BAW", "https://gdi.baw.de/csw", csw.WithHosts("baw.de")),
		csw.New("MDI-DE", "https://www.mdi-de.org/csw", csw.WithHosts("mdi-de.org")),
		csw.New("GDI-DE", "https://gdi-de.org/csw", csw.WithHosts("gdi-de.org")),
	)

	// Named instances of the Dataverse family (spec.md §5.1 "10+
	// instances").
	list = append(list,
		dataverse.New("GFZ Data Services", "https://dataservices.gfz-potsdam.de/api"),
		dataverse.New("RADAR", "https://www.radar-service.eu/radar/api"),
		dataverse.New("Arctic Data Center", "https://arcticdata.io/api"),
		dataverse.New("4TU.ResearchData", "https://data.4tu.nl/api"),
	)

	// Named instances of the CKAN family (spec.md §5.1 "generic plus
	// known-host fast path").
	list = append(list,
		ckan.New("Senckenberg", "https://ckan.senckenberg.de/api", ckan.WithHosts("senckenberg.de")),
		ckan.New("UKCEH", "https://catalogue.ceh.ac.uk/api", ckan.WithHosts("ceh.ac.uk")),
		ckan.New("GBIF Registry", "https://www.gbif.org/api", ckan.WithHosts("gbif.org")),
		ckan.New("Mendeley Data", "https://data.mendeley.com/api", ckan.WithHosts("data.mendeley.com")),
		ckan.New("SEANOE", "https://www.seanoe.org/api", ckan.WithHosts("seanoe.org")),
		ckan.New("NFDI4Earth", "https://nfdi4earth.de/api", ckan.WithHosts("nfdi4earth.de")),
		ckan.New("Pensoft", "https://data.pensoft.net/api", ckan.WithHosts("pensoft.net")),
		ckan.New("HALO DB", "https://halo-db.pa.op.dlr.de/api", ckan.WithHosts("halo-db.pa.op.dlr.de")),
	)

	// DSpace 7.x instance (spec.md §5.1 "TU Dresden Opara").
	list = append(list, dspace.New("TU Dresden Opara", "https://opara.zih.tu-dresden.de/server/api"))

	// Named STAC endpoints.
	list = append(list, stac.New("STAC", stac.WithHosts(
		"earth-search.aws.element84.com",
		"planetarycomputer.microsoft.com",
	)))

	// Generic family base adapters come after every named instance, so a
	// host none of the above claimed still resolves through its family's
	// protocol (spec.md §4.2).
	list = append(list,
		invenio.New("InvenioRDM", "", ""),
		dataverse.New("Dataverse", ""),
		ckan.New("CKAN", ""),
	)

	// Catch-all, always last (spec.md §4.2).
	list = append(list, github.New())

	return list
}
