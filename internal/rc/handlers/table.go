package handlers

import "github.com/talvera/resolverd/internal/rc/dispatch"

// Build assembles every command verb into one dispatch.Table, with
// the Distributed/AlwaysDistribute flags spec.md §4.2's grammar table
// assigns each verb.
func Build() *dispatch.Table {
	return dispatch.NewTable([]dispatch.Command{
		{Verb: "stop", Handler: Stop},
		{Verb: "reload", Handler: Reload(false)},
		{Verb: "reload_keep_cache", Handler: Reload(true)},
		{Verb: "fast_reload", Handler: FastReload},

		{Verb: "stats", Handler: Stats},
		{Verb: "stats_noreset", Handler: Stats},
		{Verb: "status", Handler: Status},
		{Verb: "print_ext_state", Handler: PrintExtState},
		{Verb: "ext_state", Handler: PrintExtState},
		{Verb: "verbosity", Distributed: true, Handler: Verbosity},

		{Verb: "local_zone", Distributed: true, Handler: LocalZone},
		{Verb: "local_zone_remove", Distributed: true, Handler: LocalZoneRemove},
		{Verb: "local_data", Distributed: true, Handler: LocalData},
		{Verb: "local_data_remove", Distributed: true, Handler: LocalDataRemove},
		{Verb: "local_zones", Distributed: true, NoReplay: true, Handler: LocalZones},
		{Verb: "local_zones_remove", Distributed: true, NoReplay: true, Handler: LocalZonesRemove},
		{Verb: "local_datas", Distributed: true, NoReplay: true, Handler: LocalDatas},
		{Verb: "local_datas_remove", Distributed: true, NoReplay: true, Handler: LocalDatasRemove},

		{Verb: "forward", Distributed: true, Handler: Forward},
		{Verb: "forward_add", Distributed: true, Handler: Forward},
		{Verb: "forward_remove", Distributed: true, Handler: ForwardRemove},
		{Verb: "stub_add", Distributed: true, Handler: StubAdd},
		{Verb: "stub_remove", Distributed: true, Handler: StubRemove},
		{Verb: "list_forwards", Handler: ListForwards},
		{Verb: "list_local_zones", Handler: ListLocalZones},

		{Verb: "flush_zone", Distributed: true, Handler: FlushZone},
		{Verb: "flush_name", Distributed: true, Handler: FlushName},
		{Verb: "flush_type", Distributed: true, Handler: FlushType},
		{Verb: "flush_infra", Distributed: true, Handler: FlushInfra},
		{Verb: "flush_bogus", Distributed: true, Handler: FlushBogus},
		{Verb: "flush_negative", Distributed: true, Handler: FlushNegative},
		{Verb: "flush_stats", AlwaysDistribute: true, Handler: FlushStats},
		{Verb: "flush_requestlist", AlwaysDistribute: true, Handler: FlushRequestlist},

		{Verb: "lookup", Handler: Lookup},
		{Verb: "dump_cache", Handler: DumpCache},
		{Verb: "load_cache", Handler: LoadCache},

		{Verb: "view_local_zone", Distributed: true, Handler: ViewLocalZone},
		{Verb: "view_list_local_zones", Handler: ViewListLocalZones},

		{Verb: "rpz_enable", Distributed: true, Handler: RPZEnable},
		{Verb: "rpz_disable", Distributed: true, Handler: RPZDisable},

		{Verb: "get_option", Handler: GetOption},
		{Verb: "set_option", Distributed: true, Handler: SetOption},

		{Verb: "ratelimit_list", Handler: RatelimitList},
		{Verb: "ip_ratelimit_list", Handler: IPRatelimitList},
		{Verb: "ratelimit_backoff", Distributed: true, Handler: RatelimitBackoff},
		{Verb: "ip_ratelimit_backoff", Distributed: true, Handler: IPRatelimitBackoff},

		{Verb: "insecure_add", AlwaysDistribute: true, Handler: InsecureAdd},
		{Verb: "insecure_remove", AlwaysDistribute: true, Handler: InsecureRemove},
	})
}
