package runtime

import (
	goruntime "runtime"
)

// Environment is what the process knows about where it is deployed.
type Environment struct {
	Docker      bool
	Kubernetes  bool
	ContainerID string
	NumCPU      int
	GoMaxProcs  int
	GoVersion   string
}

func (env Environment) InContainer() bool {
	return env.Docker || env.Kubernetes || len(env.ContainerID) > 0
}

func DetectEnvironment() Environment {
	return Environment{
		Docker:      IsRunningAtDocker(),
		Kubernetes:  IsRunningAtKubernetes(),
		ContainerID: LoadContainerID(),
		NumCPU:      goruntime.NumCPU(),
		GoMaxProcs:  goruntime.GOMAXPROCS(0),
		GoVersion:   goruntime.Version(),
	}
}
