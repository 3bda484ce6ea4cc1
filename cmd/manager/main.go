package main

import (
	"flag"
	"os"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	untrackv1alpha1 "github.com/razvanmacovei/untrack-operator/api/v1alpha1"
	"github.com/razvanmacovei/untrack-operator/internal/controller"
	"github.com/razvanmacovei/untrack-operator/internal/gateway"
	"github.com/razvanmacovei/untrack-operator/internal/metrics"
	"github.com/razvanmacovei/untrack-operator/internal/registry"
	"github.com/razvanmacovei/untrack-operator/internal/rulestore"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(untrackv1alpha1.AddToScheme(scheme))
}

func main() {
	var metricsAddr string
	var probeAddr string
	var gatewayAddr string
	var enableLeaderElection bool
	var rulesFile string
	var disableBuiltin bool
	var unresolvedPolicy string
	var pacProxyAddr string

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metrics endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.StringVar(&gatewayAddr, "gateway-bind-address", envOrDefault("GATEWAY_BIND_ADDRESS", ":8403"), "The address the redirect gateway binds to.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager.")
	flag.StringVar(&rulesFile, "rules-file", envOrDefault("RULES_FILE", ""), "Optional YAML or JSON file with extra tracker rules.")
	flag.BoolVar(&disableBuiltin, "disable-builtin-rules", false, "Do not load the built-in tracker rules.")
	flag.StringVar(&unresolvedPolicy, "unresolved-policy", envOrDefault("UNRESOLVED_POLICY", string(gateway.PolicyAllow)), "What to do with requests no rule resolves: allow or cancel.")
	flag.StringVar(&pacProxyAddr, "pac-proxy-address", envOrDefault("PAC_PROXY_ADDRESS", ""), "host:port advertised in proxy.pac. Defaults to the request's Host.")

	opts := zap.Options{}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	policy, err := gateway.ParsePolicy(unresolvedPolicy)
	if err != nil {
		setupLog.Error(err, "invalid --unresolved-policy")
		os.Exit(1)
	}

	var builtin []registry.Rule
	if !disableBuiltin {
		builtin = registry.DefaultRules()
	}
	base := append([]registry.Rule(nil), builtin...)
	if rulesFile != "" {
		fileRules, err := registry.LoadFile(rulesFile)
		if err != nil {
			setupLog.Error(err, "unable to load rules file", "path", rulesFile)
			os.Exit(1)
		}
		base = append(base, fileRules...)
	}

	// Shared rule store, fed by the base rules and TrackerRule resources.
	store, err := rulestore.New(base)
	if err != nil {
		setupLog.Error(err, "unable to build rule store")
		os.Exit(1)
	}
	metrics.ActiveRules.Set(float64(store.Len()))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "untrack-operator.untrack.io",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	if err = (&controller.TrackerRuleReconciler{
		Client:    mgr.GetClient(),
		Scheme:    mgr.GetScheme(),
		RuleStore: store,
		Recorder:  mgr.GetEventRecorderFor("trackerrule-controller"),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "TrackerRule")
		os.Exit(1)
	}

	// Register gateway as a managed runnable.
	gw := gateway.NewServer(gatewayAddr, store, policy, pacProxyAddr)
	if err := mgr.Add(gw); err != nil {
		setupLog.Error(err, "unable to add gateway server to manager")
		os.Exit(1)
	}

	if rulesFile != "" {
		if err := mgr.Add(&rulestore.FileWatcher{
			Path:    rulesFile,
			Builtin: builtin,
			Store:   store,
		}); err != nil {
			setupLog.Error(err, "unable to add rules file watcher to manager")
			os.Exit(1)
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager",
		"metrics", metricsAddr,
		"probes", probeAddr,
		"gateway", gatewayAddr,
		"baseRules", len(base),
		"unresolvedPolicy", policy,
	)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
